package rar3

// methodName maps a RAR3 compression-method byte (0x30 = stored .. 0x35 =
// best) to a short human-readable label, used only for -v diagnostics.
func methodName(method byte) string {
	switch method {
	case 0x30:
		return "stored"
	case 0x31:
		return "fastest"
	case 0x32:
		return "fast"
	case 0x33:
		return "normal"
	case 0x34:
		return "good"
	case 0x35:
		return "best"
	default:
		return "unknown"
	}
}
