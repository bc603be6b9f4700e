// Package providers implements the Completer interface for each supported
// completion service.
//
// Supported providers: Anthropic (Claude), OpenAI (GPT), Google (Gemini) and
// Ollama / LM Studio for local models.
//
// A Request carries ordered context segments and a task. Segments marked
// Cacheable become Anthropic cache breakpoints; other providers receive the
// segments joined as one system prompt, which keeps the stable prefix
// byte-identical across requests for services that cache prefixes on their
// own. Usage reports cache reads and writes separately from uncached input,
// and CostUSD is filled from the built-in price table when the model is
// known.
//
// All providers share a retry helper with exponential back-off on rate
// limits and server errors. HTTP clients are fields so that tests can
// redirect calls to local httptest servers without making live API requests.
//
// Use [New] to obtain a Completer by provider name and model string.
package providers
