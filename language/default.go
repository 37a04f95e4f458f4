package language

const nativeProfile = `
#include <tunables/global>
[[$TARGET_PATH]] {
    #include <abstractions/base>
    [[$TARGET_PATH]] mr,
}
`

const monoProfile = `
#include <tunables/global>
[[$TARGET_PATH]] {
    #include <abstractions/base>
    /etc/mono/config r,
    /usr/bin/mono-sgen mrix,
    /usr/lib{,32,64}/** mrix,
    /var/lib/binfmts/ r,
    /var/lib/binfmts/** r,
    [[$TARGET_PATH]] mr,
}
`

// DefaultConfigs is used when no language configuration file is present
var DefaultConfigs = []Config{
	{
		Name:       "C++",
		Extensions: []string{".cpp", ".hpp", ".cxx", ".hxx", ".c", ".h"},
		Compile:    "g++ [[$SRC_FILES... ]] -o [[$TARGET_PATH]] -std=c++14 -O2",
		Run:        "[[$TARGET_PATH]]",
		Profile:    nativeProfile,
	},
	{
		Name:       "C",
		Extensions: []string{".c", ".h"},
		Compile:    "gcc [[$SRC_FILES... ]] -o [[$TARGET_PATH]] -std=c11 -O2",
		Run:        "[[$TARGET_PATH]]",
		Profile:    nativeProfile,
	},
	{
		Name:       "C#",
		Extensions: []string{".cs"},
		Compile:    "mcs [[$SRC_FILES... ]] -out:[[$TARGET_PATH]] -optimize",
		Run:        "[[$TARGET_PATH]]",
		Profile:    monoProfile,
	},
}

// Default returns the built-in language table
func Default() *Table {
	t, err := NewTable(DefaultConfigs)
	if err != nil {
		panic(err)
	}
	return t
}
