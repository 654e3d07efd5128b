package config

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

const osReleasePath = "/etc/os-release"

// goos is the running OS, overridable in tests.
var goos = runtime.GOOS

// OS families recognised when choosing default paths.
const (
	FamilyDebian  = "Debian"
	FamilyRedHat  = "RedHat"
	FamilyFreeBSD = "FreeBSD"
	FamilyLinux   = "Linux"
)

// Facts describes the host the fragments are rendered for.
type Facts struct {
	Family       string `yaml:"family"`
	MajorRelease string `yaml:"major_release"`
}

// Paths are the OS-dependent default locations.
type Paths struct {
	ConfigDir string
}

// PathsFor returns the default paths for the given facts.
func PathsFor(f Facts) Paths {
	if strings.EqualFold(f.Family, FamilyFreeBSD) {
		return Paths{ConfigDir: "/usr/local/etc/heka"}
	}
	return Paths{ConfigDir: "/etc/heka"}
}

// DetectFacts reads an os-release file. A missing or unreadable file yields
// the generic Linux family on linux hosts and FreeBSD on FreeBSD.
func DetectFacts(path string) Facts {
	f, err := os.Open(path)
	if err != nil {
		return fallbackFacts()
	}
	defer f.Close()

	vals := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vals[k] = strings.Trim(v, `"'`)
	}

	facts := Facts{
		Family:       familyOf(vals["ID"], vals["ID_LIKE"]),
		MajorRelease: majorOf(vals["VERSION_ID"]),
	}
	if facts.Family == "" {
		return fallbackFacts()
	}
	return facts
}

func familyOf(id, idLike string) string {
	ids := append([]string{strings.ToLower(id)}, strings.Fields(strings.ToLower(idLike))...)
	for _, v := range ids {
		switch v {
		case "debian", "ubuntu":
			return FamilyDebian
		case "rhel", "fedora", "centos", "rocky", "almalinux":
			return FamilyRedHat
		case "freebsd":
			return FamilyFreeBSD
		}
	}
	if id != "" {
		return FamilyLinux
	}
	return ""
}

func majorOf(version string) string {
	major, _, _ := strings.Cut(version, ".")
	return major
}

func fallbackFacts() Facts {
	if goos == "freebsd" {
		return Facts{Family: FamilyFreeBSD}
	}
	return Facts{Family: FamilyLinux}
}
