// ABOUTME: Build version and product identification
// ABOUTME: Version is overridden at build time via -ldflags
package version

// Version is set with -ldflags "-X github.com/hearnow/loopcap/internal/version.Version=..."
var Version = "0.3.0-dev"

const (
	Product      = "loopcap"
	Manufacturer = "hearnow"
)

// String returns the product and version for banners
func String() string {
	return Product + " " + Version
}
