package openaicompat

// Option adjusts the request body sent for one reading.
type Option func(*ChatRequest)

// WithTemperature sets the sampling temperature. Readings are usually
// generated around 0.7.
func WithTemperature(t float64) Option {
	return func(r *ChatRequest) { r.Temperature = &t }
}

func WithTopP(p float64) Option {
	return func(r *ChatRequest) { r.TopP = &p }
}

// WithMaxTokens caps the length of the elaborated reading.
func WithMaxTokens(n int) Option {
	return func(r *ChatRequest) { r.MaxTokens = n }
}

// WithStop ends generation at any of the given sequences.
func WithStop(s ...string) Option {
	return func(r *ChatRequest) { r.Stop = s }
}

// WithSeed asks the backend for repeatable sampling. Not every
// compatible service honours it.
func WithSeed(s int) Option {
	return func(r *ChatRequest) { r.Seed = &s }
}
