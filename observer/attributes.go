package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for divination spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrUser   = attribute.Key("oracle.user")
	AttrStatus = attribute.Key("status")

	AttrQuotaAllowed   = attribute.Key("quota.allowed")
	AttrQuotaRemaining = attribute.Key("quota.remaining")

	AttrAugmentStatus = attribute.Key("augment.status")

	AttrHistoryLimit = attribute.Key("history.limit")
	AttrHistoryCount = attribute.Key("history.count")
)
