package invoker

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/tools"
)

const snippetLen = 200

// formatter turns a successful capability value into the text delivered to
// the user. It may persist the value through the result store.
type formatter struct {
	store ResultStore
}

func (f formatter) format(tool tools.Tool, args map[string]any, value any) string {
	name := tool.Spec.Name
	switch tool.Family {
	case tools.FamilyRawHits:
		if isEmpty(value) {
			return fmt.Sprintf("Operation completed, but no results were returned by %s.", name)
		}
		path, err := f.saveJSON(name, rawHitsPrefix(name, args), value)
		if err != nil {
			return fmt.Sprintf("Operation completed. Results: %s", Render(value))
		}
		return fmt.Sprintf("Operation completed. Results saved to: %s", path)

	case tools.FamilyScrape:
		url := tools.StringArg(args, "url", "unknown_url")
		text := Render(value)
		if isEmpty(value) {
			return fmt.Sprintf("Web scrape completed for %s, but no content was returned.", url)
		}
		path, err := f.saveText("web_scrape_"+hostToken(url), text)
		if err != nil {
			return fmt.Sprintf("Web scrape completed. Snippet: %s...", snippet(text))
		}
		return fmt.Sprintf("Web scrape completed. Text content saved to: %s. Snippet: %s...", path, snippet(text))

	case tools.FamilyDocument:
		text, isString := value.(string)
		if isString && strings.HasSuffix(name, "_read") {
			stem := strings.TrimSuffix(filepath.Base(tools.StringArg(args, "path", "unknown")), filepath.Ext(tools.StringArg(args, "path", "unknown")))
			path, err := f.saveText("pdf_content_"+stem, text)
			if err != nil {
				return fmt.Sprintf("PDF content read. Snippet: %s...", snippet(text))
			}
			return fmt.Sprintf("PDF content read and saved to: %s. Snippet: %s...", path, snippet(text))
		}
		if isString && (strings.HasSuffix(text, ".pdf") || strings.Contains(text, "generated.pdf")) {
			return fmt.Sprintf("Document operation completed. Output file: %s", text)
		}
		return fmt.Sprintf("Document operation completed, but result was unexpected: %s", Render(value))

	case tools.FamilyRAG:
		if isEmpty(value) {
			return "RAG query completed, but no relevant documents found."
		}
		return fmt.Sprintf("RAG query results: %s", Render(value))

	case tools.FamilyCalc:
		return fmt.Sprintf("The calculated value is: %s", Render(value))

	case tools.FamilyMessage:
		return Render(value)
	}
	return fmt.Sprintf("Function %s executed. Result: %s", name, Render(value))
}

func (f formatter) saveJSON(tool, prefix string, value any) (string, error) {
	if f.store == nil {
		return "", ErrSaveResult.Msg("no result store configured")
	}
	path, err := f.store.SaveJSON(tool, prefix, value)
	if err != nil {
		log.Warn().Err(err).Str("tool", tool).Msg("failed to save tool result")
	}
	return path, err
}

func (f formatter) saveText(prefix, text string) (string, error) {
	if f.store == nil {
		return "", ErrSaveResult.Msg("no result store configured")
	}
	path, err := f.store.SaveText(prefix, text)
	if err != nil {
		log.Warn().Err(err).Str("prefix", prefix).Msg("failed to save tool result")
	}
	return path, err
}

// rawHitsPrefix names the saved file after the tool and its first string
// argument, e.g. recon_username_alice.
func rawHitsPrefix(name string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return name
	}
	// deterministic choice
	first := keys[0]
	for _, k := range keys[1:] {
		if k < first {
			first = k
		}
	}
	if s, ok := args[first].(string); ok && s != "" {
		return name + "_" + s
	}
	return name
}

func hostToken(url string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return strings.NewReplacer(".", "_", ":", "_").Replace(host)
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen])
}

// Render prints a tool value the way the user should read it: strings as
// is, integral numbers without a fraction, everything else as JSON.
func Render(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int, int32, int64, uint, uint32, uint64, bool:
		return fmt.Sprint(val)
	case error:
		return val.Error()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
