package version

// version is set at build time via -ldflags "-X ...version.version=v1.2.3".
var version = "dev"

func Get() string {
	return version
}
