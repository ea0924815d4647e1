package observer

import (
	"context"
	"time"

	oracle "github.com/oraclelang/oracle"

	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedLimiter wraps an oracle.Limiter and counts its decisions.
type ObservedLimiter struct {
	inner oracle.Limiter
	inst  *Instruments
}

var _ oracle.Limiter = (*ObservedLimiter)(nil)

func WrapLimiter(inner oracle.Limiter, inst *Instruments) *ObservedLimiter {
	return &ObservedLimiter{inner: inner, inst: inst}
}

func (o *ObservedLimiter) CheckAndConsume(ctx context.Context, user string, now time.Time) (oracle.Decision, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "oracle.quota", trace.WithAttributes(AttrUser.String(user)))
	defer span.End()

	d, err := o.inner.CheckAndConsume(ctx, user, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.inst.QuotaDecisions.Add(ctx, 1, metric.WithAttributes(AttrStatus.String("error")))
		return d, err
	}
	status := "allowed"
	if !d.Allowed {
		status = "denied"
	}
	span.SetAttributes(AttrQuotaAllowed.Bool(d.Allowed), AttrQuotaRemaining.Int(d.Remaining))
	o.inst.QuotaDecisions.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
	return d, nil
}

// ObservedAugmenter wraps an oracle.Augmenter and records each status.
type ObservedAugmenter struct {
	inner oracle.Augmenter
	inst  *Instruments
}

var _ oracle.Augmenter = (*ObservedAugmenter)(nil)

func WrapAugmenter(inner oracle.Augmenter, inst *Instruments) *ObservedAugmenter {
	return &ObservedAugmenter{inner: inner, inst: inst}
}

func (o *ObservedAugmenter) Augment(ctx context.Context, question string, r oracle.Reading) oracle.Augmentation {
	ctx, span := o.inst.Tracer.Start(ctx, "oracle.augment")
	defer span.End()
	start := time.Now()

	a := o.inner.Augment(ctx, question, r)

	durationMs := float64(time.Since(start).Milliseconds())
	span.SetAttributes(AttrAugmentStatus.String(string(a.Status)))
	if a.Err != nil {
		span.RecordError(a.Err)
	}
	attrs := metric.WithAttributes(AttrAugmentStatus.String(string(a.Status)))
	o.inst.Augmentations.Add(ctx, 1, attrs)
	o.inst.AugmentDuration.Record(ctx, durationMs, attrs)

	if a.Status != oracle.AugmentOK && a.Status != oracle.AugmentDisabled {
		var rec otellog.Record
		rec.SetSeverity(otellog.SeverityWarn)
		rec.SetBody(otellog.StringValue("reading elaboration fell back to local text"))
		rec.AddAttributes(
			otellog.String("augment.status", string(a.Status)),
			otellog.Float64("augment.duration_ms", durationMs),
		)
		o.inst.Logger.Emit(ctx, rec)
	}
	return a
}

// ObservedHistory wraps an oracle.HistoryStore with spans and a write counter.
type ObservedHistory struct {
	inner oracle.HistoryStore
	inst  *Instruments
}

var _ oracle.HistoryStore = (*ObservedHistory)(nil)

func WrapHistory(inner oracle.HistoryStore, inst *Instruments) *ObservedHistory {
	return &ObservedHistory{inner: inner, inst: inst}
}

func (o *ObservedHistory) Record(ctx context.Context, rec oracle.HistoryRecord) error {
	ctx, span := o.inst.Tracer.Start(ctx, "history.record", trace.WithAttributes(AttrUser.String(rec.User)))
	defer span.End()

	err := o.inner.Record(ctx, rec)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.inst.HistoryWrites.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
	return err
}

func (o *ObservedHistory) Recent(ctx context.Context, user string, limit int) ([]oracle.HistoryRecord, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "history.recent", trace.WithAttributes(
		AttrUser.String(user),
		AttrHistoryLimit.Int(limit),
	))
	defer span.End()

	records, err := o.inner.Recent(ctx, user, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(AttrHistoryCount.Int(len(records)))
	return records, nil
}
