package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mickamy/planview/internal/model"
)

var (
	costRe     = regexp.MustCompile(`\(cost=(\d+(?:\.\d+)?)\.\.(\d+(?:\.\d+)?)\s+rows=(\d+)\s+width=(\d+)\)`)
	actualRe   = regexp.MustCompile(`\(actual(?: time=(\d+(?:\.\d+)?)\.\.(\d+(?:\.\d+)?))?\s+rows=(\d+(?:\.\d+)?)\s+loops=(\d+)\)`)
	neverRe    = regexp.MustCompile(`\(never executed\)`)
	subplanRe  = regexp.MustCompile(`^(InitPlan|SubPlan|CTE)\s+(.+)$`)
	propRe     = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 /_()-]*?):\s*(.*)$`)
	timeRe     = regexp.MustCompile(`(?i)^(planning time|execution time|total runtime):\s+(\d+(?:\.\d+)?)\s*ms$`)
	triggerRe  = regexp.MustCompile(`^Trigger\s+(.+?)(?:\s+on\s+(\S+))?:\s+time=(\d+(?:\.\d+)?)\s+calls=(\d+)$`)
	settingRe  = regexp.MustCompile(`([A-Za-z_][\w.]*)\s*=\s*'((?:[^']|'')*)'`)
	jitTimeRe  = regexp.MustCompile(`^([A-Za-z]+)\s+(\d+(?:\.\d+)?)\s*ms`)
	rowCountRe = regexp.MustCompile(`^\(\d+ rows?\)$`)
	joinRe     = regexp.MustCompile(`^(Hash|Merge) (?:(Left|Right|Full|Semi|Anti|Right Semi|Right Anti) )?Join$`)
	loopJoinRe = regexp.MustCompile(`^Nested Loop(?: (Left|Right|Full|Semi|Anti|Right Semi|Right Anti) Join)?$`)
)

var aggregateStrategies = map[string]string{
	"Aggregate":      "Plain",
	"HashAggregate":  "Hashed",
	"GroupAggregate": "Sorted",
	"MixedAggregate": "Mixed",
}

var timeKeys = map[string]string{
	"planning time":  "Planning Time",
	"execution time": "Execution Time",
	"total runtime":  "Total Runtime",
}

type frame struct {
	indent int
	step   *model.Step
}

type textBlock int

const (
	blockNone textBlock = iota
	blockJIT
	blockPlanning
)

// ParseText reads the plain-text EXPLAIN output, including psql decorations
// such as the "QUERY PLAN" header, the "(n rows)" footer and '+' wraps.
func ParseText(input string) (*model.Document, error) {
	lines := cleanLines(input)

	fields := map[string]any{}
	var (
		root        *model.Step
		stack       []frame
		base        int
		pending     string
		pendingName string
		block       textBlock
		jit         map[string]any
		triggers    []any
	)

	for _, ln := range lines {
		raw := ln.text
		leading := len(raw) - len(strings.TrimLeft(raw, " "))
		trimmed := strings.TrimSpace(raw)

		if root == nil {
			if !isNodeDetail(trimmed) {
				return nil, &ParseError{Format: model.FormatText, Line: ln.number, Reason: "expected a plan node"}
			}
			base = leading
			root = parseNodeLine(trimmed)
			stack = []frame{{indent: -1, step: root}}
			continue
		}

		indent := leading - base
		if indent <= 0 {
			block = blockNone
			switch {
			case trimmed == "JIT:":
				block = blockJIT
				jit = map[string]any{}
				fields["JIT"] = jit
			case trimmed == "Planning:":
				block = blockPlanning
			case timeRe.MatchString(trimmed):
				m := timeRe.FindStringSubmatch(trimmed)
				fields[timeKeys[strings.ToLower(m[1])]] = parseFloat(m[2])
			case triggerRe.MatchString(trimmed):
				m := triggerRe.FindStringSubmatch(trimmed)
				trigger := map[string]any{
					"Trigger Name": m[1],
					"Time":         parseFloat(m[3]),
					"Calls":        parseFloat(m[4]),
				}
				if m[2] != "" {
					trigger["Relation"] = m[2]
				}
				triggers = append(triggers, trigger)
			case strings.HasPrefix(trimmed, "Settings:"):
				fields["Settings"] = parseSettings(strings.TrimPrefix(trimmed, "Settings:"))
			}
			continue
		}

		switch block {
		case blockJIT:
			parseJITLine(jit, trimmed)
			continue
		case blockPlanning:
			continue
		}

		rel := raw[min(base, leading):]
		if idx := strings.Index(rel, "->"); idx >= 0 && strings.TrimSpace(rel[:idx]) == "" {
			step := parseNodeLine(strings.TrimSpace(rel[idx+2:]))
			if pending != "" {
				step.Fields["Parent Relationship"] = pending
				step.Fields["Subplan Name"] = pendingName
				pending, pendingName = "", ""
			}
			for len(stack) > 1 && stack[len(stack)-1].indent >= idx {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].step
			parent.Children = append(parent.Children, step)
			stack = append(stack, frame{indent: idx, step: step})
			continue
		}

		if m := subplanRe.FindStringSubmatch(trimmed); m != nil {
			for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
				stack = stack[:len(stack)-1]
			}
			pending, pendingName = m[1], trimmed
			continue
		}

		parseProperties(stack[len(stack)-1].step, trimmed)
	}

	if root == nil {
		return nil, parseErr(model.FormatText, "no plan node found", nil)
	}
	if len(triggers) > 0 {
		fields["Triggers"] = triggers
	}
	return &model.Document{Root: root, Fields: fields, Format: model.FormatText}, nil
}

type textLine struct {
	number int
	text   string
}

func cleanLines(input string) []textLine {
	var out []textLine
	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimRight(line, "\r ")
		if strings.HasSuffix(line, "+") {
			line = strings.TrimRight(strings.TrimSuffix(line, "+"), " ")
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "QUERY PLAN" || rowCountRe.MatchString(trimmed) {
			continue
		}
		if strings.Trim(trimmed, "-+") == "" {
			continue
		}
		out = append(out, textLine{number: i + 1, text: line})
	}
	return out
}

// unwrapPsql drops psql's table decorations and the common indentation of
// what is left.
func unwrapPsql(data []byte) []byte {
	lines := cleanLines(string(data))
	indent := -1
	for _, ln := range lines {
		n := len(ln.text) - len(strings.TrimLeft(ln.text, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	var b strings.Builder
	for _, ln := range lines {
		b.WriteString(ln.text[max(indent, 0):])
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func isNodeDetail(text string) bool {
	return costRe.MatchString(text) || actualRe.MatchString(text) || neverRe.MatchString(text)
}

// parseNodeLine handles "Index Scan using idx on t a  (cost=..) (actual ..)".
func parseNodeLine(text string) *model.Step {
	fields := map[string]any{}

	name := text
	for _, marker := range []string{" (cost=", " (actual", " (never executed)"} {
		if i := strings.Index(name, marker); i >= 0 {
			name = name[:i]
		}
	}
	describeNode(strings.TrimSpace(name), fields)

	if m := costRe.FindStringSubmatch(text); m != nil {
		fields[string(model.StatStartupCost)] = parseFloat(m[1])
		fields[string(model.StatTotalCost)] = parseFloat(m[2])
		fields[string(model.StatPlanRows)] = parseFloat(m[3])
		fields[string(model.StatPlanWidth)] = parseFloat(m[4])
	}
	if m := actualRe.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			fields[string(model.StatActualStartupTime)] = parseFloat(m[1])
			fields[string(model.StatActualTotalTime)] = parseFloat(m[2])
		}
		fields[string(model.StatActualRows)] = parseFloat(m[3])
		fields[string(model.StatActualLoops)] = parseFloat(m[4])
	} else if neverRe.MatchString(text) {
		fields[string(model.StatActualStartupTime)] = 0.0
		fields[string(model.StatActualTotalTime)] = 0.0
		fields[string(model.StatActualRows)] = 0.0
		fields[string(model.StatActualLoops)] = 0.0
	}
	return &model.Step{Fields: fields}
}

func describeNode(name string, fields map[string]any) {
	if rest, ok := strings.CutPrefix(name, "Parallel "); ok {
		fields["Parallel Aware"] = true
		name = rest
	}
	for _, mode := range []string{"Partial", "Finalize"} {
		if rest, ok := strings.CutPrefix(name, mode+" "); ok {
			fields["Partial Mode"] = mode
			name = rest
		}
	}

	var target string
	if before, after, ok := strings.Cut(name, " using "); ok {
		name = before
		index, on, found := strings.Cut(after, " on ")
		fields["Index Name"] = index
		if found {
			target = on
		}
	} else if before, after, ok := strings.Cut(name, " on "); ok {
		name = before
		target = after
	}
	if rest, ok := strings.CutSuffix(name, " Backward"); ok {
		fields["Scan Direction"] = "Backward"
		name = rest
	}

	switch {
	case joinRe.MatchString(name):
		m := joinRe.FindStringSubmatch(name)
		name = m[1] + " Join"
		fields["Join Type"] = orDefault(m[2], "Inner")
	case loopJoinRe.MatchString(name):
		m := loopJoinRe.FindStringSubmatch(name)
		name = "Nested Loop"
		fields["Join Type"] = orDefault(m[1], "Inner")
	default:
		if strategy, ok := aggregateStrategies[name]; ok {
			name = "Aggregate"
			fields["Strategy"] = strategy
		}
	}
	fields[keyNodeType] = name

	if target == "" {
		return
	}
	parts := strings.Fields(target)
	switch name {
	case "Bitmap Index Scan":
		fields["Index Name"] = parts[0]
	case "CTE Scan":
		fields["CTE Name"] = parts[0]
	case "Function Scan":
		fields["Function Name"] = parts[0]
	default:
		relation := parts[0]
		if schema, rel, ok := strings.Cut(relation, "."); ok {
			fields["Schema"] = schema
			relation = rel
		}
		fields["Relation Name"] = relation
		fields["Alias"] = relation
	}
	if len(parts) > 1 {
		fields["Alias"] = parts[1]
	}
}

// parseProperties splits "Sort Method: quicksort  Memory: 25kB" into two
// properties; PostgreSQL separates them with two spaces.
func parseProperties(step *model.Step, text string) {
	for text != "" {
		m := propRe.FindStringSubmatch(text)
		if m == nil {
			return
		}
		key, value := m[1], m[2]
		text = ""
		if i := strings.Index(value, "  "); i >= 0 {
			rest := strings.TrimSpace(value[i:])
			if propRe.MatchString(rest) {
				value = value[:i]
				text = rest
			}
		}
		setProperty(step, key, strings.TrimSpace(value))
	}
}

func setProperty(step *model.Step, key, value string) {
	switch key {
	case "Buffers":
		parseBuffers(step.Fields, value)
	case "I/O Timings":
		for _, token := range strings.Fields(value) {
			k, v, ok := strings.Cut(strings.TrimSuffix(token, ","), "=")
			if !ok {
				continue
			}
			switch k {
			case "read":
				step.Fields[string(model.StatIOReadTime)] = parseFloat(v)
			case "write":
				step.Fields[string(model.StatIOWriteTime)] = parseFloat(v)
			}
		}
	default:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			step.Fields[key] = f
			return
		}
		step.Fields[key] = value
	}
}

// parseBuffers reads "shared hit=4 read=2, temp read=5 written=6".
func parseBuffers(fields map[string]any, value string) {
	for _, group := range strings.Split(value, ",") {
		words := strings.Fields(group)
		if len(words) < 2 {
			continue
		}
		category := title(words[0])
		for _, word := range words[1:] {
			k, v, ok := strings.Cut(word, "=")
			if !ok {
				continue
			}
			fields[category+" "+title(k)+" Blocks"] = parseFloat(v)
		}
	}
}

func parseSettings(value string) map[string]any {
	settings := map[string]any{}
	for _, m := range settingRe.FindAllStringSubmatch(value, -1) {
		settings[m[1]] = strings.ReplaceAll(m[2], "''", "'")
	}
	return settings
}

// parseJITLine reads "Timing: Generation 1.1 ms, ..., Total 9.6 ms" and
// simple counters such as "Functions: 4".
func parseJITLine(jit map[string]any, text string) {
	key, value, ok := strings.Cut(text, ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	if key != "Timing" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			jit[key] = f
		} else {
			jit[key] = value
		}
		return
	}
	timing := map[string]any{}
	for _, part := range strings.Split(value, ",") {
		if m := jitTimeRe.FindStringSubmatch(strings.TrimSpace(part)); m != nil {
			timing[m[1]] = parseFloat(m[2])
		}
	}
	jit["Timing"] = timing
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
