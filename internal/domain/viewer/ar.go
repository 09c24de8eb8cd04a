package viewer

import "regexp"

// arPlatforms matches user agents of devices that can open the model in AR.
var arPlatforms = regexp.MustCompile(`(?i)iPhone|webOS|Android|iPad|iPod|BlackBerry|Windows Phone`)

// DetectAR reports whether the platform signature belongs to an AR-capable
// device. An empty signature is treated as not capable.
func DetectAR(platform string) bool {
	return arPlatforms.MatchString(platform)
}
