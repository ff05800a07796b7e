//go:build js

package trust

const untrustedRuntime = true
