package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Caster turns an Input into a CastingResult. Implementations are pure.
type Caster interface {
	Cast(in Input) (CastingResult, error)
}

// Interpreter assembles the reading of a casting.
type Interpreter interface {
	Interpret(res CastingResult) (Reading, error)
}

// Augmenter elaborates a reading through an LLM. It never fails: on any
// problem the returned Augmentation carries the reading's own text.
type Augmenter interface {
	Augment(ctx context.Context, question string, r Reading) Augmentation
}

// Limiter gates castings per user.
type Limiter interface {
	CheckAndConsume(ctx context.Context, user string, now time.Time) (Decision, error)
}

// HistoryStore keeps an append-only log of castings per user.
type HistoryStore interface {
	Record(ctx context.Context, rec HistoryRecord) error
	// Recent returns at most limit records for user, newest first.
	Recent(ctx context.Context, user string, limit int) ([]HistoryRecord, error)
}

// Request is one divination call from the host.
type Request struct {
	User  string
	Input Input
	// Question is the user's question as shown in history. Defaults to
	// Input.Text for text castings.
	Question string
	Now      time.Time
}

// Outcome is the structured result of Divine.
type Outcome struct {
	Decision     Decision
	Reading      Reading
	Augmentation Augmentation
	Record       HistoryRecord
	// Text is what Perform returns on success.
	Text string
}

// Oracle is the divination orchestrator: the single entry point hosts call.
type Oracle struct {
	caster    Caster
	interp    Interpreter
	limiter   Limiter
	history   HistoryStore
	augmenter Augmenter
	location  *time.Location
	logger    *slog.Logger
	onFault   func(error)
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithAugmenter enables LLM elaboration of readings.
func WithAugmenter(a Augmenter) Option {
	return func(o *Oracle) { o.augmenter = a }
}

// WithLogger sets the structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(o *Oracle) { o.logger = l }
}

// WithLocation sets the zone used for time castings and displayed times.
// Defaults to UTC+8.
func WithLocation(loc *time.Location) Option {
	return func(o *Oracle) { o.location = loc }
}

// WithFaultHandler registers fn to be called with every data-integrity
// failure, after it has been logged.
func WithFaultHandler(fn func(error)) Option {
	return func(o *Oracle) { o.onFault = fn }
}

// DefaultLocation is China Standard Time, the zone quotas reset in by default.
var DefaultLocation = time.FixedZone("UTC+8", 8*60*60)

// New creates an Oracle from its collaborators.
func New(caster Caster, interp Interpreter, limiter Limiter, history HistoryStore, opts ...Option) *Oracle {
	o := &Oracle{
		caster:   caster,
		interp:   interp,
		limiter:  limiter,
		history:  history,
		location: DefaultLocation,
		logger:   nopLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// QuotaError is returned by Divine when the limiter denies a request.
type QuotaError struct {
	Decision Decision
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: retry after %s", e.Decision.Window.User, e.Decision.RetryAfter)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// Divine runs one casting and returns its structured outcome. Errors wrap
// ErrInvalidInput, ErrQuotaExceeded (as *QuotaError) or ErrDataIntegrity;
// any other error comes from the limiter.
func (o *Oracle) Divine(ctx context.Context, req Request) (Outcome, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	in := req.Input
	if in.Time.IsZero() {
		// Time castings read the hour from it; other methods stamp CastAt.
		in.Time = now.In(o.location)
	}
	if err := in.Validate(); err != nil {
		return Outcome{}, err
	}

	dec, err := o.limiter.CheckAndConsume(ctx, req.User, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("check quota: %w", err)
	}
	out := Outcome{Decision: dec}
	if !dec.Allowed {
		o.logger.Info("oracle: quota denied", "user", req.User, "retry_after", dec.RetryAfter)
		return out, &QuotaError{Decision: dec}
	}

	res, err := o.caster.Cast(in)
	if err != nil {
		return out, err
	}
	reading, err := o.interp.Interpret(res)
	if err != nil {
		return out, err
	}
	out.Reading = reading

	question := req.Question
	if question == "" && in.Method == MethodText {
		question = in.Text
	}

	out.Augmentation = Augmentation{Status: AugmentDisabled, Text: reading.Text}
	if o.augmenter != nil {
		out.Augmentation = o.augmenter.Augment(ctx, question, reading)
		if out.Augmentation.Status != AugmentOK {
			o.logger.Debug("oracle: using local reading", "user", req.User, "status", out.Augmentation.Status, "error", out.Augmentation.Err)
		}
	}
	out.Text = out.Augmentation.Text
	if out.Text == "" {
		out.Text = reading.Text
	}

	out.Record = HistoryRecord{
		ID:        NewID(),
		User:      req.User,
		Question:  question,
		Result:    res,
		Summary:   reading.Summary(),
		CreatedAt: now,
	}
	if err := o.history.Record(ctx, out.Record); err != nil {
		o.logger.Warn("oracle: record history failed", "user", req.User, "error", err)
	}

	o.logger.Info("oracle: cast",
		"user", req.User,
		"method", res.Method,
		"primary", res.Primary.Index(),
		"secondary", res.Secondary.Index(),
		"moving", res.Moving.Positions(),
		"augment", out.Augmentation.Status)
	return out, nil
}

// Perform runs one casting and always returns user-facing text.
func (o *Oracle) Perform(ctx context.Context, req Request) string {
	out, err := o.Divine(ctx, req)
	if err != nil {
		return o.Explain(req, err)
	}
	return out.Text
}

// Explain turns an error from Divine into user-facing text. Data-integrity
// failures are logged and passed to the fault handler.
func (o *Oracle) Explain(req Request, err error) string {
	var qe *QuotaError
	switch {
	case errors.As(err, &qe):
		return quotaMessage(qe.Decision, o.location)
	case errors.Is(err, ErrInvalidInput):
		return invalidInputMessage(req.Input.Method, err)
	case errors.Is(err, ErrDataIntegrity):
		o.logger.Error("oracle: hexagram data integrity failure", "user", req.User, "error", err)
		if o.onFault != nil {
			o.onFault(err)
		}
		return failureMessage
	default:
		o.logger.Error("oracle: divination failed", "user", req.User, "error", err)
		return failureMessage
	}
}

// History renders the user's most recent castings, newest first.
func (o *Oracle) History(ctx context.Context, user string, limit int) string {
	records, err := o.history.Recent(ctx, user, limit)
	if err != nil {
		o.logger.Error("oracle: read history failed", "user", user, "error", err)
		return "❌ 获取历史记录时出错，请稍后再试。"
	}
	return formatHistory(records, o.location)
}

const failureMessage = "❌ 算卦过程出现错误，请稍后再试或联系管理员。"

func invalidInputMessage(m Method, err error) string {
	var hint string
	switch m {
	case MethodDigit:
		hint = fmt.Sprintf("数字起卦需要 %d 个 0-9 的数字，每 %d 个为一爻，自下而上共六爻。", DigitCount, CoinsPerLine)
	case MethodTime:
		hint = "时间起卦需要一个有效的时间。"
	default:
		hint = "请输入您的问题。"
	}
	return fmt.Sprintf("❌ 起卦参数有误（%v）\n%s", err, hint)
}

func quotaMessage(d Decision, loc *time.Location) string {
	return fmt.Sprintf("您的算卦次数已达上限（%d次），请等待重置。\n下次重置时间: %s（约%s后）",
		d.Limit, d.Window.End.In(loc).Format(time.DateTime), formatWait(d.RetryAfter))
}

// formatWait renders a duration as hours and minutes, rounding up.
func formatWait(d time.Duration) string {
	mins := int((d + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	if mins < 60 {
		return fmt.Sprintf("%d分钟", mins)
	}
	if mins%60 == 0 {
		return fmt.Sprintf("%d小时", mins/60)
	}
	return fmt.Sprintf("%d小时%d分钟", mins/60, mins%60)
}

func formatHistory(records []HistoryRecord, loc *time.Location) string {
	if len(records) == 0 {
		return "您还没有算卦记录。"
	}
	var sb strings.Builder
	sb.WriteString("您的近期算卦记录：\n")
	for i, r := range records {
		q := r.Question
		if q == "" {
			q = "随缘一卦"
		}
		fmt.Fprintf(&sb, "\n%d. [%s] %s", i+1, r.CreatedAt.In(loc).Format(time.DateTime), q)
		if r.Summary != "" {
			fmt.Fprintf(&sb, "\n   %s", r.Summary)
		}
	}
	return sb.String()
}
