// Package patterns holds the pure predicates and extractors the monitoring
// engine uses to classify captured pane text. Nothing in this package reads
// a pane, writes a keystroke, or keeps state across calls — every function
// is a deterministic transform of the text it is given.
package patterns

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	limitPattern = regexp.MustCompile(`(?i)limit reached|usage limit|limit.*resets`)

	activePromptLine   = regexp.MustCompile(`(?m)^\s*>`)
	activeInputBox     = regexp.MustCompile(`[│|].*>.*[│|]`)
	continuePhrase     = regexp.MustCompile(`(?i)continue this conversation|you can continue|your limit (will )?reset`)

	approvalQuestion = regexp.MustCompile(`(?i)do you want to (make this edit to|create|proceed)`)
	approvalOption   = regexp.MustCompile(`(?m)^\s*❯?\s*(\d+)\.\s*(.+)$`)
	selectionMarker  = "❯"

	resetTimePattern = regexp.MustCompile(`(?i)resets (?:at )?(\d{1,2}(?::\d{2})?\s*(?:am|pm)?)|available again at (\d{1,2}(?::\d{2})?\s*(?:am|pm)?)|ready at (\d{1,2}(?::\d{2})?\s*(?:am|pm)?)`)

	optionShortcut = regexp.MustCompile(`\(([^()]+)\)\s*$`)

	waitingForInput = regexp.MustCompile(`(?m)^>\s*$|^>.*↵\s*send`)

	editTarget    = regexp.MustCompile(`(?i)make this edit to\s+(\S+)`)
	createTarget  = regexp.MustCompile(`(?i)create\s+(\S+)`)
	ansiSGR       = regexp.MustCompile(`\x1b\[([0-9;]*)m`)
)

var processingMarkers = []string{
	"◐", "◑", "◒", "◓", "⠋", "⠙", "⠹", "⠸",
	"processing", "analyzing", "running", "executing", "working", "loading",
}

// LimitPresent reports whether text mentions a usage limit, case-insensitively.
func LimitPresent(text string) bool {
	return limitPattern.MatchString(text)
}

// ActiveTerminalState reports whether the screen shows an input affordance:
// a bare ">" at the start of a line, an input-box frame containing ">", or
// one of the continuation phrases Claude Code prints after a limit notice.
func ActiveTerminalState(text string) bool {
	if activePromptLine.MatchString(text) {
		return true
	}
	if activeInputBox.MatchString(text) {
		return true
	}
	return continuePhrase.MatchString(text)
}

// ApprovalDialogPresent reports whether the screen carries all three parts
// of a modal approval dialog: a question line, a numbered "N. Yes" option,
// and a selection marker. The three parts may fall on different lines.
func ApprovalDialogPresent(text string) bool {
	if !approvalQuestion.MatchString(text) {
		return false
	}
	if !hasYesOption(text) {
		return false
	}
	return strings.Contains(text, selectionMarker)
}

func hasYesOption(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		m := approvalOption.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(m[2]), "Yes") {
			return true
		}
	}
	return false
}

// InteractiveApproval reports whether a colored capture's approval-dialog
// lines are genuinely live (carry a non-dim color escape and no dim/grey
// escape) rather than pasted text. A capture with no escapes at all is
// assumed interactive, since there is nothing to contradict it.
func InteractiveApproval(coloredText string) bool {
	if !ansiSGR.MatchString(coloredText) {
		return true
	}

	for _, line := range strings.Split(coloredText, "\n") {
		if !isApprovalContentLine(line) {
			continue
		}
		codes := sgrCodes(line)
		if len(codes) == 0 {
			continue
		}
		hasNonDim := false
		hasDim := false
		for _, c := range codes {
			switch c {
			case 2, 8, 90:
				hasDim = true
			case 0:
				// reset, not informative either way
			default:
				hasNonDim = true
			}
		}
		if hasDim {
			return false
		}
		if hasNonDim {
			return true
		}
	}
	return false
}

func isApprovalContentLine(line string) bool {
	stripped := stripANSI(line)
	if approvalQuestion.MatchString(stripped) {
		return true
	}
	if approvalOption.MatchString(stripped) {
		return true
	}
	return strings.Contains(stripped, selectionMarker)
}

func stripANSI(s string) string {
	return ansiSGR.ReplaceAllString(s, "")
}

func trimTrailingPunct(s string) string {
	return strings.TrimRight(s, "?.,:;!")
}

func sgrCodes(line string) []int {
	var codes []int
	for _, m := range ansiSGR.FindAllStringSubmatch(line, -1) {
		for _, part := range strings.Split(m[1], ";") {
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err == nil {
				codes = append(codes, n)
			}
		}
	}
	return codes
}

// ExtractResetTime returns the first reset-time phrase found in text
// ("resets 3pm", "resets at 3:45pm", "available again at 9am", "ready at
// 11"), or "" if none matched.
func ExtractResetTime(text string) string {
	m := resetTimePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.TrimSpace(g)
		}
	}
	return ""
}

// ApprovalOption is a single numbered choice in an approval dialog.
type ApprovalOption struct {
	Number   int
	Text     string
	Shortcut string
}

// ApprovalInfo is the fully parsed content of an approval dialog.
type ApprovalInfo struct {
	Question string
	Tool     string
	Action   string
	Options  []ApprovalOption
}

// ExtractApprovalInfo parses de-boxed approval-dialog text into its
// question, classified tool/action, and numbered options.
func ExtractApprovalInfo(text string) ApprovalInfo {
	info := ApprovalInfo{}

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		clean := stripANSI(line)
		if approvalQuestion.MatchString(clean) {
			info.Question = strings.TrimSpace(clean)
			break
		}
	}

	for _, line := range lines {
		clean := stripANSI(line)
		m := approvalOption.FindStringSubmatch(clean)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rest := strings.TrimSpace(m[2])
		shortcut := ""
		if sm := optionShortcut.FindStringSubmatch(rest); sm != nil {
			shortcut = sm[1]
			rest = strings.TrimSpace(rest[:len(rest)-len(sm[0])])
		}
		info.Options = append(info.Options, ApprovalOption{
			Number:   num,
			Text:     rest,
			Shortcut: shortcut,
		})
	}

	info.Tool, info.Action = classifyAction(info.Question, text)
	return info
}

func classifyAction(question, fullText string) (tool, action string) {
	if m := editTarget.FindStringSubmatch(question); m != nil {
		return "Edit", "Edit " + trimTrailingPunct(m[1])
	}
	if m := createTarget.FindStringSubmatch(question); m != nil {
		return "Write", "Write " + trimTrailingPunct(m[1])
	}
	if strings.Contains(strings.ToLower(question), "proceed") {
		if strings.Contains(strings.ToLower(fullText), "bash command") {
			if cmd := firstNonChromeLine(fullText); cmd != "" {
				return "Bash", "Bash: " + cmd
			}
		}
	}
	return "Tool", "Proceed with operation"
}

// firstNonChromeLine returns the first line that isn't blank, isn't the
// question line, isn't a numbered option, and doesn't carry the selection
// marker — i.e. the command body shown inside a Bash-approval dialog.
func firstNonChromeLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		clean := strings.TrimSpace(stripANSI(line))
		if clean == "" {
			continue
		}
		if approvalQuestion.MatchString(clean) {
			continue
		}
		if approvalOption.MatchString(clean) {
			continue
		}
		if strings.Contains(clean, selectionMarker) {
			continue
		}
		if strings.EqualFold(clean, "Bash command") {
			continue
		}
		return clean
	}
	return ""
}

// WaitingForInput reports whether the pane shows an empty prompt line,
// ready for keyboard input.
func WaitingForInput(text string) bool {
	return waitingForInput.MatchString(text)
}

// NotProcessing reports whether the last non-empty line of text lacks any
// of the spinner glyphs or verbs Claude Code shows while it is busy. This
// preserves the source tool's "some line is quiet" semantics: it looks only
// at the single last non-empty line, not the whole screen.
func NotProcessing(text string) bool {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, marker := range processingMarkers {
			if strings.Contains(lower, marker) {
				return false
			}
		}
		return true
	}
	return true
}

// FormatOptionsForDisplay renders approval options as Markdown list lines,
// e.g. "**1.** Yes *(shift+tab)*".
func FormatOptionsForDisplay(options []ApprovalOption) string {
	var b strings.Builder
	for i, opt := range options {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("**")
		b.WriteString(strconv.Itoa(opt.Number))
		b.WriteString(".** ")
		b.WriteString(opt.Text)
		if opt.Shortcut != "" {
			b.WriteString(" *(")
			b.WriteString(opt.Shortcut)
			b.WriteString(")*")
		}
	}
	return b.String()
}
