package authcore

// maskMobile keeps the first 3 and last 4 digits of a mobile number and
// masks the middle. Numbers too short to split are fully masked.
func maskMobile(mobile string) string {
	const keepHead, keepTail = 3, 4

	if len(mobile) <= keepHead+keepTail {
		masked := make([]byte, len(mobile))
		for i := range masked {
			masked[i] = '*'
		}
		return string(masked)
	}

	masked := []byte(mobile)
	for i := keepHead; i < len(masked)-keepTail; i++ {
		masked[i] = '*'
	}
	return string(masked)
}
