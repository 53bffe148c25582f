package profile

// iniFile is the parse tree of a profile. Pairs before the first header
// belong to the unnamed section.
type iniFile struct {
	Globals  []*iniPair    `parser:"@@*"`
	Sections []*iniSection `parser:"@@*"`
}

type iniSection struct {
	Header string     `parser:"@Section"`
	Pairs  []*iniPair `parser:"@@*"`
}

type iniPair struct {
	Key   string `parser:"@Key"`
	Value string `parser:"@Value"`
}
