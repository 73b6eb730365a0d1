package directive

import "regexp"

type handler func(in *Interpreter, m []string) ([]string, error)

type rule struct {
	name    string
	pattern *regexp.Regexp
	apply   handler
}

func directive(name, args string, apply handler) rule {
	return rule{
		name:    name,
		pattern: regexp.MustCompile(`^#@` + regexp.QuoteMeta(name) + `(?:\s|$)` + args),
		apply:   apply,
	}
}

func ignore(*Interpreter, []string) ([]string, error) { return nil, nil }

// rules are tried in order; the first match wins.
var rules = []rule{
	directive("timeout", `\s*(\d+)`, (*Interpreter).timeout),
	directive("timeout", `\s*default`, (*Interpreter).timeoutDefault),
	directive("omit", ``, (*Interpreter).omitDirective),
	directive("eval", ``, (*Interpreter).omitDirective),
	directive("suggest-create-dataset", `\s*(\w+)`, (*Interpreter).suggestCreateDataset),
	directive("on-error", `\s*omit`, (*Interpreter).onErrorOmit),
	directive("on-error", `\s*default`, (*Interpreter).onErrorDefault),
	directive("copy-path", `\s*(\S+)\s+(\S+)`, (*Interpreter).copyPath),
	directive("sleep", `\s*(\d+(?:\.\d+)?)`, (*Interpreter).sleep),
	directive("generate-series", `\s*(\d+)\s+(\d+)\s+(\w+)\s+'((?:\\'|[^'])+)'`, (*Interpreter).generateSeries),
	directive("add-important-log-levels", ``, ignore),
	directive("remove-important-log-levels", ``, ignore),
	directive("disable-logging", ``, (*Interpreter).disableLogging),
	directive("enable-logging", ``, (*Interpreter).enableLogging),
	directive("collect-query-log", `\s*(true|false)`, ignore),
	directive("read-timeout", `\s*(\S+)`, ignore),
	directive("require-input-type", `\s*(\S+)`, (*Interpreter).requireInputType),
	directive("add-ignore-log-pattern", ``, ignore),
	directive("remove-ignore-log-pattern", ``, ignore),
	directive("require-interface", `\s*(\S+)`, (*Interpreter).requireInterface),
	directive("require-testee", `\s*(\S+)`, (*Interpreter).requireTestee),
	directive("require-apache-arrow", ``, (*Interpreter).requireApacheArrow),
	directive("require-platform", `\s*(\S+)`, (*Interpreter).requirePlatform),
	directive("include", `\s*(\S+)`, ignore),
}

var directiveName = regexp.MustCompile(`^#@([\w-]*)`)

// Names lists the known directive names in table order.
func Names() []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range rules {
		if !seen[r.name] {
			seen[r.name] = true
			names = append(names, r.name)
		}
	}
	return names
}
