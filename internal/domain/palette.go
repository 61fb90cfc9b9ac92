package domain

// ResolvedColor is one entry of a resolved palette: the input string as
// declared in config, the normalized hex it parsed to (or the literal
// "invalid" when parsing failed), and the (r,g,b) triple when valid.
type ResolvedColor struct {
	Input   string
	Hex     string
	RGB     RGB
	Invalid bool
}
