//go:build !js

package trust

const untrustedRuntime = false
