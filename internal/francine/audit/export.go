package audit

import (
	"io"
	"os"

	"github.com/golang/snappy"
)

// Export writes a snappy-framed copy of the log at src to dst.
func Export(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return ErrExportFailed.MsgErr("unable to open log", err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return ErrExportFailed.MsgErr("unable to create export", err)
	}
	zw := snappy.NewBufferedWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return ErrExportFailed.MsgErr("compression failed", err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(tmp)
		return ErrExportFailed.MsgErr("compression failed", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return ErrExportFailed.Err(err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return ErrExportFailed.Err(err)
	}
	return nil
}
