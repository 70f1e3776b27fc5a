package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// LoadError reports a malformed workbook file, naming the offending
// line so the CLI can point a user at it directly (spec.md §6).
type LoadError struct {
	Line   int
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("pycellsheet: load error at line %d: %s", e.Line, e.Reason)
}

// legacySections/legacyKeys name section and key spellings from an
// earlier, since-abandoned revision of the file format. Loading a file
// that still uses them fails loudly with *LoadError rather than being
// silently reinterpreted, since a numeric-keyed [sheet_scripts] section
// cannot be told apart from a present-day sheet ID without guessing.
var legacySections = map[string]bool{
	"sheet_scripts": true,
}

var legacyParserKeys = map[string]bool{
	"parser_mode": true,
	"formula_mode": true,
}

// Serialize renders the workbook as spec.md §6's sectioned UTF-8 text
// format: [shape], [sheet_names], [grid], [attributes],
// [sheet_script:<name>] (one per sheet), [parser_settings].
func (w *Workbook) Serialize() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var sb strings.Builder
	ids := make([]uint32, 0, len(w.eval.sheets))
	for id := range w.eval.sheets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	sb.WriteString("[shape]\n")
	fmt.Fprintf(&sb, "sheets=%d\n\n", len(ids))

	sb.WriteString("[sheet_names]\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "%d=%s\n", id, w.eval.sheets[id].Name)
	}
	sb.WriteString("\n[grid]\n")
	addrs := make([]CellAddress, 0, w.store.Text.Len())
	for addr := range w.store.Text.text {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		a, b := addrs[i], addrs[j]
		if a.Sheet != b.Sheet {
			return a.Sheet < b.Sheet
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	for _, addr := range addrs {
		text, _ := w.store.Text.Get(addr)
		fmt.Fprintf(&sb, "%d!%s=%s\n", addr.Sheet, LabelOf(addr.Row, addr.Col), escapeValue(text))
	}

	sb.WriteString("\n[attributes]\n")
	for _, addr := range addrs {
		for k, v := range w.store.Attributes.All(addr) {
			fmt.Fprintf(&sb, "%d!%s:%s=%s\n", addr.Sheet, LabelOf(addr.Row, addr.Col), k, escapeValue(fmt.Sprint(v)))
		}
	}

	for _, id := range ids {
		sh := w.eval.sheets[id]
		if sh.Applied == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n[sheet_script:%s]\n%s\n", sh.Name, sh.Applied)
	}

	sb.WriteString("\n[parser_settings]\n")
	fmt.Fprintf(&sb, "mode=%s\n", w.mode)
	return sb.String()
}

// escapeValue escapes embedded newlines so a cell's raw text survives a
// round trip through the line-oriented [grid] section.
func escapeValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return strings.ReplaceAll(s, "\n", "\\n")
}

func unescapeValue(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				sb.WriteByte('\n')
				i++
				continue
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// LoadWorkbook parses spec.md §6's sectioned text format into a fresh
// Workbook. reg/log are passed through to NewWorkbook.
func LoadWorkbook(text string, reg prometheus.Registerer, log *zap.Logger) (*Workbook, error) {
	sections, err := splitSections(text)
	if err != nil {
		return nil, err
	}
	for name := range sections {
		if legacySections[strings.ToLower(name)] {
			line := 0
			for i, raw := range strings.Split(text, "\n") {
				if strings.TrimSpace(raw) == "["+name+"]" {
					line = i + 1
					break
				}
			}
			return nil, &LoadError{Line: line, Reason: fmt.Sprintf("section [%s] uses a legacy layout no longer supported; re-save the file", name)}
		}
	}

	mode := Mixed
	if block, ok := sections["parser_settings"]; ok {
		for _, line := range block.lines {
			key, val, ok := splitKV(line.text)
			if !ok {
				continue
			}
			if legacyParserKeys[strings.ToLower(key)] {
				return nil, &LoadError{Line: line.no, Reason: fmt.Sprintf("parser setting %q is a legacy key name; use \"mode\"", key)}
			}
			if strings.ToLower(key) == "mode" {
				mode = ParserMode(val)
			}
		}
	}

	wb := NewWorkbook(mode, reg, log)
	for id := range wb.eval.sheets {
		delete(wb.eval.sheets, id)
	}
	wb.store.Sheets = NewStringTable()

	if block, ok := sections["sheet_names"]; ok {
		for _, line := range block.lines {
			idStr, name, ok := splitKV(line.text)
			if !ok {
				return nil, &LoadError{Line: line.no, Reason: "expected id=name"}
			}
			id64, err := strconv.ParseUint(idStr, 10, 32)
			if err != nil {
				return nil, &LoadError{Line: line.no, Reason: "sheet id must be numeric"}
			}
			id := uint32(id64)
			wb.store.Sheets.strings[name] = id
			wb.store.Sheets.reverseMap[id] = name
			wb.store.Sheets.refCounts[id] = 1
			if id >= wb.store.Sheets.nextID {
				wb.store.Sheets.nextID = id + 1
			}
			wb.eval.sheets[id] = NewSheet(name, id)
		}
	}

	if block, ok := sections["grid"]; ok {
		for _, line := range block.lines {
			key, val, ok := splitKV(line.text)
			if !ok {
				return nil, &LoadError{Line: line.no, Reason: "expected sheet!label=text"}
			}
			addr, err := parseGridKey(key)
			if err != nil {
				return nil, &LoadError{Line: line.no, Reason: err.Error()}
			}
			wb.store.Text.Set(addr, unescapeValue(val))
			wb.store.Graph.EnsureVertex(addr)
			wb.cache.MarkDirty(addr)
		}
	}

	if block, ok := sections["attributes"]; ok {
		for _, line := range block.lines {
			key, val, ok := splitKV(line.text)
			if !ok {
				return nil, &LoadError{Line: line.no, Reason: "expected sheet!label:key=value"}
			}
			addr, attrKey, err := parseAttrKey(key)
			if err != nil {
				return nil, &LoadError{Line: line.no, Reason: err.Error()}
			}
			wb.store.Attributes.Set(addr, attrKey, unescapeValue(val))
		}
	}

	for name, block := range sections {
		const prefix = "sheet_script:"
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		sheetName := strings.TrimPrefix(name, prefix)
		id, exists := wb.store.Sheets.Contains(sheetName)
		if !exists {
			continue
		}
		var raw strings.Builder
		for i, line := range block.lines {
			if i > 0 {
				raw.WriteByte('\n')
			}
			raw.WriteString(line.text)
		}
		sh := wb.eval.sheets[id]
		sh.SetDraft(raw.String())
		env := wb.eval.scriptEnv(CellAddress{Sheet: id})
		sh.ApplyScript(env, nil)
	}

	return wb, nil
}

func parseGridKey(key string) (CellAddress, error) {
	bang := strings.IndexByte(key, '!')
	if bang < 0 {
		return CellAddress{}, fmt.Errorf("expected sheet!label")
	}
	sheet64, err := strconv.ParseUint(key[:bang], 10, 32)
	if err != nil {
		return CellAddress{}, fmt.Errorf("sheet id must be numeric")
	}
	row, col, err := CoordOf(key[bang+1:])
	if err != nil {
		return CellAddress{}, err
	}
	return CellAddress{Sheet: uint32(sheet64), Row: row, Col: col}, nil
}

func parseAttrKey(key string) (CellAddress, string, error) {
	colon := strings.IndexByte(key, ':')
	if colon < 0 {
		return CellAddress{}, "", fmt.Errorf("expected sheet!label:key")
	}
	addr, err := parseGridKey(key[:colon])
	if err != nil {
		return CellAddress{}, "", err
	}
	return addr, key[colon+1:], nil
}

func splitKV(line string) (key, val string, ok bool) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return "", "", false
	}
	return line[:eq], line[eq+1:], true
}

type sourceLine struct {
	no   int
	text string
}

type section struct {
	lines []sourceLine
}

// splitSections splits sectioned INI-style text on `[name]` headers.
func splitSections(text string) (map[string]*section, error) {
	sections := make(map[string]*section)
	var current *section
	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			name := trimmed[1 : len(trimmed)-1]
			current = &section{}
			sections[name] = current
			continue
		}
		if current == nil {
			return nil, &LoadError{Line: lineNo, Reason: "content before the first section header"}
		}
		current.lines = append(current.lines, sourceLine{no: lineNo, text: line})
	}
	return sections, nil
}
