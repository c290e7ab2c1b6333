package pass

// PrintPipeline writes the textual form of opm to sink, chunk by chunk:
//
//	anchor(element,element,...)
//
// Passes print as their mnemonic followed by `{key=value ...}` when they
// declare options. Nested managers recurse. The output parses back, through
// ParsePipeline, into an equivalent tree.
func PrintPipeline(opm *OpPassManager, sink Sink) {
	sink = sink.orDiscard()
	sink(opm.anchor)
	sink("(")
	for i, e := range opm.entries {
		if i > 0 {
			sink(",")
		}
		if e.nested != nil {
			PrintPipeline(e.nested, sink)
			continue
		}
		printPass(e.pass, sink)
	}
	sink(")")
}

func printPass(p Pass, sink Sink) {
	info := p.Info()
	sink(info.Mnemonic())
	if info.Options.Len() == 0 {
		return
	}
	sink("{")
	info.Options.print(sink)
	sink("}")
}
