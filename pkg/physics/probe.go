package physics

// USDSupport describes whether an engine build can import OpenUSD, and
// through which loader path.
type USDSupport struct {
	Supported bool   `json:"supported"`
	Loader    string `json:"loader,omitempty"`
}

// ProbeUSD inspects an engine's capabilities the way LoadModel would use
// them: a direct USD loader wins, the parse-then-compile path is the
// fallback.
func ProbeUSD(eng Engine) USDSupport {
	caps := eng.Capabilities()
	switch {
	case caps.LoadUSD:
		return USDSupport{Supported: true, Loader: eng.Name() + ".LoadUSD"}
	case caps.ParseSpec:
		return USDSupport{Supported: true, Loader: eng.Name() + ".ParseSpec().Compile()"}
	default:
		return USDSupport{Supported: false}
	}
}

// ProbeReport is the full capability surface of one engine, in the shape the
// probe command prints.
type ProbeReport struct {
	Engine       string       `json:"engine"`
	Capabilities Capabilities `json:"capabilities"`
	USD          USDSupport   `json:"usd"`
}

// Probe builds a capability report for eng.
func Probe(eng Engine) ProbeReport {
	return ProbeReport{
		Engine:       eng.Name(),
		Capabilities: eng.Capabilities(),
		USD:          ProbeUSD(eng),
	}
}
