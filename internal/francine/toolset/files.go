package toolset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/tools"
)

const maxReadBytes = 4 << 20

// FileManager performs file operations confined to a single root directory,
// normally <data_dir>/ManagedFiles.
type FileManager struct {
	root string
}

// NewFileManager creates root if needed and returns a manager for it.
func NewFileManager(root string) (*FileManager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, ErrFileOperation.MsgErr("invalid managed files directory", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, ErrFileOperation.MsgErr("unable to create managed files directory", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &FileManager{root: abs}, nil
}

// Root is the absolute sandbox directory.
func (m *FileManager) Root() string { return m.root }

// Resolve maps a user supplied path to an absolute path inside the root.
// Symlinks are followed for the part of the path that exists.
func (m *FileManager) Resolve(requested string) (string, error) {
	candidate := requested
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(m.root, candidate)
	}
	candidate = filepath.Clean(candidate)
	resolved := resolveExisting(candidate)
	if !within(m.root, resolved) {
		return "", ErrAccessDenied.Msg(fmt.Sprintf("Access denied: Path '%s' is outside the allowed directory.", requested))
	}
	return resolved, nil
}

// resolveExisting evaluates symlinks on the longest existing prefix of p.
func resolveExisting(p string) string {
	rest := ""
	cur := p
	for {
		if _, err := os.Lstat(cur); err == nil {
			real, err := filepath.EvalSymlinks(cur)
			if err != nil {
				return p
			}
			return filepath.Join(real, rest)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// List returns "FILE: name" and "DIR: name" lines sorted by name.
func (m *FileManager) List(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = "."
	}
	dir, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", ErrFileOperation.Msg(fmt.Sprintf("'%s' is not a directory or does not exist.", path))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			lines = append(lines, "DIR: "+e.Name())
		} else {
			lines = append(lines, "FILE: "+e.Name())
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("Directory '%s' is empty.", path), nil
	}
	return strings.Join(lines, "\n"), nil
}

// Read returns the content of a UTF-8 text file.
func (m *FileManager) Read(ctx context.Context, path string) (string, error) {
	p, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrFileOperation.Msg(fmt.Sprintf("File '%s' not found or is not a file.", path))
	}
	f, err := os.Open(p)
	if err != nil {
		return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error reading file '%s'", path), err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxReadBytes+1))
	if err != nil {
		return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error reading file '%s'", path), err)
	}
	if len(data) > maxReadBytes {
		return "", ErrFileOperation.Msg(fmt.Sprintf("File '%s' is too large to read.", path))
	}
	if kind, _ := filetype.Match(data); kind != filetype.Unknown {
		return "", ErrFileOperation.Msg(fmt.Sprintf("File '%s' is not a text file (%s).", path, kind.MIME.Value))
	}
	if !utf8.Valid(data) {
		return "", ErrFileOperation.Msg(fmt.Sprintf("File '%s' is not valid UTF-8 text.", path))
	}
	return string(data), nil
}

// Write stores content at path, creating parent directories. Existing files
// are only replaced when overwrite is set.
func (m *FileManager) Write(ctx context.Context, path, content string, overwrite bool) (string, error) {
	p, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	if p == m.root {
		return "", ErrFileOperation.Msg(fmt.Sprintf("'%s' is a directory.", path))
	}
	if _, err := os.Stat(p); err == nil && !overwrite {
		return "", ErrFileOperation.Msg(fmt.Sprintf("File '%s' already exists. Set overwrite=true to replace it.", path))
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error writing to file '%s'", path), err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error writing to file '%s'", path), err)
	}
	log.Ctx(ctx).Info().Str("path", p).Int("bytes", len(content)).Msg("managed file written")
	return fmt.Sprintf("Successfully wrote content to '%s'.", path), nil
}

// Move renames source to destination. A destination that is an existing
// directory receives the source under its own name.
func (m *FileManager) Move(ctx context.Context, source, destination string) (string, error) {
	src, err := m.Resolve(source)
	if err != nil {
		return "", err
	}
	dst, err := m.Resolve(destination)
	if err != nil {
		return "", err
	}
	if src == m.root {
		return "", ErrFileOperation.Msg("Cannot move the managed files directory.")
	}
	if _, err := os.Lstat(src); err != nil {
		return "", ErrFileOperation.Msg(fmt.Sprintf("Source file/directory '%s' does not exist.", source))
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error moving '%s' to '%s'", source, destination), err)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error moving '%s' to '%s'", source, destination), err)
	}
	log.Ctx(ctx).Info().Str("from", src).Str("to", dst).Msg("managed file moved")
	return fmt.Sprintf("Successfully moved '%s' to '%s'.", source, destination), nil
}

// Delete removes a file or an empty directory.
func (m *FileManager) Delete(ctx context.Context, path string) (string, error) {
	p, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	if p == m.root {
		return "", ErrFileOperation.Msg("Cannot delete the managed files directory.")
	}
	info, err := os.Lstat(p)
	if err != nil {
		return "", ErrFileOperation.Msg(fmt.Sprintf("File/directory '%s' does not exist.", path))
	}
	if info.IsDir() {
		entries, err := os.ReadDir(p)
		if err != nil {
			return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error deleting '%s'", path), err)
		}
		if len(entries) > 0 {
			return "", ErrFileOperation.Msg(fmt.Sprintf("Directory '%s' is not empty. Cannot delete non-empty directories for safety.", path))
		}
		if err := os.Remove(p); err != nil {
			return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error deleting '%s'", path), err)
		}
		log.Ctx(ctx).Info().Str("path", p).Msg("managed directory deleted")
		return fmt.Sprintf("Successfully deleted empty directory '%s'.", path), nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error deleting '%s'", path), err)
	}
	log.Ctx(ctx).Info().Str("path", p).Msg("managed file deleted")
	return fmt.Sprintf("Successfully deleted file '%s'.", path), nil
}

// Mkdir creates path and any missing parents.
func (m *FileManager) Mkdir(ctx context.Context, path string) (string, error) {
	p, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", ErrFileOperation.MsgErr(fmt.Sprintf("Error creating directory '%s'", path), err)
	}
	return fmt.Sprintf("Successfully created directory '%s'.", path), nil
}

// Tools exposes the manager as message-family tools.
func (m *FileManager) Tools() []tools.Tool {
	return []tools.Tool{
		tools.New("list_directory_contents", "Lists contents of a directory within Francine's managed files.", tools.FamilyMessage,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return m.List(ctx, tools.StringArg(args, "path", "."))
			}),
			tools.Optional("path", "string", "The path to the directory (relative to the managed files directory)."),
		),
		tools.New("read_text_file", "Reads text content of a file within Francine's managed files.", tools.FamilyMessage,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return m.Read(ctx, tools.StringArg(args, "path", ""))
			}),
			tools.Required("path", "string", "The path to the file (relative to the managed files directory)."),
		),
		tools.New("write_text_file", "Writes text content to a file within Francine's managed files.", tools.FamilyMessage,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return m.Write(ctx, tools.StringArg(args, "path", ""), tools.StringArg(args, "content", ""), tools.BoolArg(args, "overwrite", false))
			}),
			tools.Required("path", "string", "The path to the file (relative to the managed files directory)."),
			tools.Required("content", "string", "The text content to write."),
			tools.Optional("overwrite", "boolean", "Whether to overwrite if file exists (default false)."),
		),
		tools.New("move_file", "Moves a file within Francine's managed files.", tools.FamilyMessage,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return m.Move(ctx, tools.StringArg(args, "source_path", ""), tools.StringArg(args, "destination_path", ""))
			}),
			tools.Required("source_path", "string", "The current path of the file."),
			tools.Required("destination_path", "string", "The new path for the file."),
		),
		tools.New("delete_file", "Deletes a file or empty directory within Francine's managed files.", tools.FamilyMessage,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return m.Delete(ctx, tools.StringArg(args, "path", ""))
			}),
			tools.Required("path", "string", "The path to the file or empty directory."),
		),
		tools.New("create_directory", "Creates a new directory within Francine's managed files.", tools.FamilyMessage,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return m.Mkdir(ctx, tools.StringArg(args, "path", ""))
			}),
			tools.Required("path", "string", "The path of the new directory."),
		),
	}
}
