package resolve

import "strings"

// nodeBuiltins lists the Node.js core modules importable without a scheme.
var nodeBuiltins = map[string]struct{}{
	"assert": {}, "assert/strict": {}, "async_hooks": {}, "buffer": {},
	"child_process": {}, "cluster": {}, "console": {}, "constants": {},
	"crypto": {}, "dgram": {}, "diagnostics_channel": {}, "dns": {},
	"dns/promises": {}, "domain": {}, "events": {}, "fs": {},
	"fs/promises": {}, "http": {}, "http2": {}, "https": {},
	"inspector": {}, "inspector/promises": {}, "module": {}, "net": {},
	"os": {}, "path": {}, "path/posix": {}, "path/win32": {},
	"perf_hooks": {}, "process": {}, "punycode": {}, "querystring": {},
	"readline": {}, "readline/promises": {}, "repl": {}, "stream": {},
	"stream/consumers": {}, "stream/promises": {}, "stream/web": {},
	"string_decoder": {}, "sys": {}, "timers": {}, "timers/promises": {},
	"tls": {}, "trace_events": {}, "tty": {}, "url": {}, "util": {},
	"util/types": {}, "v8": {}, "vm": {}, "wasi": {}, "worker_threads": {},
	"zlib": {},
}

// builtinSchemes prefix modules that only the runtime provides.
var builtinSchemes = []string{"node:", "bun:"}

// Builtin reports whether specifier names a runtime builtin module.
func Builtin(specifier string) bool {
	for _, scheme := range builtinSchemes {
		if strings.HasPrefix(specifier, scheme) && len(specifier) > len(scheme) {
			return true
		}
	}
	if specifier == "bun" {
		return true
	}
	_, ok := nodeBuiltins[specifier]
	return ok
}
