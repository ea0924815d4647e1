// Package oracle is the core of OracleLang, a chatbot divination engine that
// casts I-Ching hexagrams from free text, coin digits, or timestamps.
//
// The root package defines the data model (Line, Trigram, Hexagram,
// MovingLines, CastingResult), the collaborator interfaces, and the
// orchestrator that hosts call into:
//
//	engine := cast.New()
//	interp := interpret.New(glyph.Default())
//	limiter := limit.New(limit.NewMemoryStore(), limit.Daily{Location: oracle.DefaultLocation}, 3)
//	hist := history.NewMemory(20)
//
//	o := oracle.New(engine, interp, limiter, hist,
//		oracle.WithAugmenter(interpret.NewAugmenter(provider, interpret.WithTimeout(15*time.Second))),
//	)
//	text := o.Perform(ctx, oracle.Request{
//		User:  "42",
//		Input: oracle.Input{Method: oracle.MethodText, Text: "今天运势如何"},
//		Now:   time.Now(),
//	})
//
// # Core Interfaces
//
//   - [Caster] — deterministic casting (package cast)
//   - [Interpreter] — reading assembly (package interpret)
//   - [Augmenter] — best-effort LLM elaboration (package interpret)
//   - [Limiter] — per-user quota gate (package limit)
//   - [HistoryStore] — per-user casting log (packages history, store/sqlite, store/postgres)
//   - [Provider] — LLM backend (packages provider/openaicompat, provider/resolve)
//
// Errors returned by collaborators wrap [ErrInvalidInput] or
// [ErrDataIntegrity]; [Oracle.Explain] turns them into user text.
//
// See cmd/oracle for a host that wires everything from a config file.
package oracle
