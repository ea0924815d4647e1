package oracle

import (
	"fmt"
	"strings"
	"time"
)

// --- Casting ---

// Method selects the casting algorithm.
type Method string

const (
	MethodText  Method = "text"
	MethodDigit Method = "digit"
	MethodTime  Method = "time"
)

// ParseMethod accepts the canonical names and the Chinese aliases used in chat.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "文本", "文字":
		return MethodText, nil
	case "digit", "digits", "number", "数字":
		return MethodDigit, nil
	case "time", "时间":
		return MethodTime, nil
	}
	return "", fmt.Errorf("unknown method %q: %w", s, ErrInvalidInput)
}

func (m Method) Valid() bool {
	return m == MethodText || m == MethodDigit || m == MethodTime
}

const (
	// CoinsPerLine is the number of coin values that decide one line.
	CoinsPerLine = 3
	// DigitCount is the number of values a digit casting needs (six coin triplets).
	DigitCount = 6 * CoinsPerLine
)

// Input is the raw material of one casting. Which field is read depends on Method.
type Input struct {
	Method Method
	Text   string
	Digits []int
	Time   time.Time
}

// Validate checks the shape of the input without casting it.
func (in Input) Validate() error {
	switch in.Method {
	case MethodText:
		if strings.TrimSpace(in.Text) == "" {
			return fmt.Errorf("empty text: %w", ErrInvalidInput)
		}
	case MethodDigit:
		if len(in.Digits)%CoinsPerLine != 0 {
			return fmt.Errorf("%d digits is not a multiple of %d: %w", len(in.Digits), CoinsPerLine, ErrInvalidInput)
		}
		if len(in.Digits) != DigitCount {
			return fmt.Errorf("need %d digits, got %d: %w", DigitCount, len(in.Digits), ErrInvalidInput)
		}
		for i, d := range in.Digits {
			if d < 0 || d > 9 {
				return fmt.Errorf("digit %d out of range (%d): %w", i+1, d, ErrInvalidInput)
			}
		}
	case MethodTime:
		if in.Time.IsZero() {
			return fmt.Errorf("missing timestamp: %w", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("unknown method %q: %w", in.Method, ErrInvalidInput)
	}
	return nil
}

// String renders the input the way it is stored in history.
func (in Input) String() string {
	switch in.Method {
	case MethodDigit:
		parts := make([]string, len(in.Digits))
		for i, d := range in.Digits {
			parts[i] = fmt.Sprint(d)
		}
		return strings.Join(parts, " ")
	case MethodTime:
		return in.Time.Format(time.RFC3339)
	default:
		return in.Text
	}
}

// CastingResult is the outcome of one casting. It is a value and is not
// modified after NewCastingResult builds it.
type CastingResult struct {
	Primary   Hexagram    `json:"primary"`
	Moving    MovingLines `json:"moving"`
	Secondary Hexagram    `json:"secondary"`
	Method    Method      `json:"method"`
	Input     string      `json:"input"`
	CastAt    time.Time   `json:"cast_at"`
}

// NewCastingResult derives the secondary hexagram from primary and moving.
func NewCastingResult(method Method, input string, primary Hexagram, moving MovingLines, at time.Time) CastingResult {
	return CastingResult{
		Primary:   primary,
		Moving:    moving & 0x3f,
		Secondary: primary.Flip(moving & 0x3f),
		Method:    method,
		Input:     input,
		CastAt:    at,
	}
}

// Changed reports whether the casting has a distinct secondary hexagram.
func (r CastingResult) Changed() bool { return !r.Moving.Empty() }

// --- Interpretation ---

// Fortune is the coarse verdict of a reading.
type Fortune string

const (
	FortuneGood    Fortune = "吉"
	FortuneBad     Fortune = "凶"
	FortuneNeutral Fortune = "平"
)

// Reading is the interpreted form of a CastingResult.
type Reading struct {
	Result        CastingResult
	PrimaryName   string
	SecondaryName string
	// MovingLines holds the line statements of the moving positions, ascending.
	MovingLines []string
	Meaning     string
	Fortune     Fortune
	Advice      string
	// Text is the assembled passage returned to the user.
	Text string
}

// Summary is the one-line form kept in history, e.g. "乾为天变天风姤，吉。…".
func (r Reading) Summary() string {
	name := r.PrimaryName
	if r.Result.Changed() {
		name += "变" + r.SecondaryName
	}
	return fmt.Sprintf("%s，%s。%s", name, r.Fortune, r.Advice)
}

// AugmentStatus is the outcome of an LLM elaboration attempt.
type AugmentStatus string

const (
	AugmentOK        AugmentStatus = "ok"
	AugmentDisabled  AugmentStatus = "disabled"
	AugmentTimeout   AugmentStatus = "timeout"
	AugmentError     AugmentStatus = "error"
	AugmentMalformed AugmentStatus = "malformed"
)

// Augmentation carries the elaborated text, or the local text with the
// reason elaboration did not happen.
type Augmentation struct {
	Status AugmentStatus
	Text   string
	Err    error
}

// --- Quota ---

// UsageWindow is one user's counter for the current quota window.
type UsageWindow struct {
	User  string    `json:"user"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
	// Quota overrides the limiter's default maximum when positive.
	Quota int `json:"quota,omitempty"`
}

// Elapsed reports whether the window is over at now.
func (w UsageWindow) Elapsed(now time.Time) bool { return !now.Before(w.End) }

// Decision is the Limiter's verdict for one request.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	Window     UsageWindow
}

// UsageStats summarises all counters.
type UsageStats struct {
	Users       int
	ActiveUsers int
	TotalUsage  int
}

// --- History ---

// HistoryRecord is one stored casting.
type HistoryRecord struct {
	ID        string        `json:"id"`
	User      string        `json:"user"`
	Question  string        `json:"question"`
	Result    CastingResult `json:"result"`
	Summary   string        `json:"summary"`
	CreatedAt time.Time     `json:"created_at"`
}

// --- LLM ---

// ChatMessage is a single message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}
