package diagnosis

// Color is a dominant image colour as reported by the vision service.
type Color struct {
	Red      int     `json:"red"`
	Green    int     `json:"green"`
	Blue     int     `json:"blue"`
	Name     string  `json:"name,omitempty"`
	Fraction float64 `json:"fraction,omitempty"`
}

// Names returns the colour words a dominant colour satisfies.
// The RGB thresholds are deliberately loose; several names can apply at once.
func (c Color) Names() []string {
	var out []string
	if n := normalize(c.Name); n != "" {
		out = append(out, n)
	}
	r, g, b := c.Red, c.Green, c.Blue
	if r > 100 {
		out = append(out, "red")
	}
	if g > 100 {
		out = append(out, "green")
	}
	if r > 100 && g > 100 {
		out = append(out, "yellow")
	}
	if r > 100 && g > 50 {
		out = append(out, "brown")
	}
	if r > 200 && g > 120 && g < 190 && b < 80 {
		out = append(out, "orange")
	}
	if r < 100 && g < 100 && b < 100 {
		out = append(out, "black")
	}
	if r > 200 && g > 200 && b > 200 {
		out = append(out, "white")
	}
	if r >= 100 && r <= 200 && absInt(r-g) < 20 && absInt(g-b) < 20 {
		out = append(out, "gray")
	}
	return out
}

// MatchColors lists the condition's colour hints found among the dominant colours,
// in hint order. It does not influence which condition is matched.
func MatchColors(hints []string, colors []Color) []string {
	if len(hints) == 0 || len(colors) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	for _, c := range colors {
		for _, n := range c.Names() {
			seen[n] = struct{}{}
		}
	}
	var out []string
	for _, h := range hints {
		if _, ok := seen[normalize(h)]; ok {
			out = append(out, h)
		}
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
