package audit

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

var snappyMagic = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}

// Verify checks the hash chain and every signature in r, which may be a
// plain log or a snappy-framed export. It returns the number of entries.
func Verify(r io.Reader, pub ed25519.PublicKey) (int, error) {
	if len(pub) != ed25519.PublicKeySize {
		return 0, ErrInvalidKey.Msg("public key has the wrong size")
	}
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(snappyMagic)); bytes.Equal(head, snappyMagic) {
		r = snappy.NewReader(br)
	} else {
		r = br
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line, prev := 0, ""
	for sc.Scan() {
		line++
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return line - 1, ErrVerifyFailed.Msg(fmt.Sprintf("line %d: invalid JSON: %v", line, err))
		}
		if e.PrevHash != prev {
			return line - 1, ErrVerifyFailed.Msg(fmt.Sprintf("line %d: prevHash mismatch", line))
		}
		hash, err := entryHash(e.Payload, e.PrevHash)
		if err != nil {
			return line - 1, ErrVerifyFailed.Msg(fmt.Sprintf("line %d: %v", line, err))
		}
		if hash != e.Hash {
			return line - 1, ErrVerifyFailed.Msg(fmt.Sprintf("line %d: hash mismatch", line))
		}
		signData, err := canonical(signInput{Payload: e.Payload, PrevHash: e.PrevHash, Hash: e.Hash})
		if err != nil {
			return line - 1, ErrVerifyFailed.Msg(fmt.Sprintf("line %d: %v", line, err))
		}
		sig, err := base64.StdEncoding.DecodeString(e.Signature)
		if err != nil {
			return line - 1, ErrVerifyFailed.Msg(fmt.Sprintf("line %d: invalid base64 signature", line))
		}
		if !ed25519.Verify(pub, signData, sig) {
			return line - 1, ErrVerifyFailed.Msg(fmt.Sprintf("line %d: signature verification failed", line))
		}
		prev = e.Hash
	}
	if err := sc.Err(); err != nil {
		return line, ErrVerifyFailed.MsgErr("unable to read log", err)
	}
	return line, nil
}
