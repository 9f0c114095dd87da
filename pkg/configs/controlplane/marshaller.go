package controlplane

import (
	"os"

	"gopkg.in/yaml.v3"
)

// load the daemon config from a file.
//
// args:
//   - filepath: filepath refers a config file.
//
// returns *ControlPlaneConfig, error:
//
//	When loading succeeds, returns `(*ControlPlaneConfig, nil)`.
//	Otherwise, returns `(nil, error)`.
//	Misconfiguration (missing required fields) panics; the daemon
//	should not come up half-configured.
func LoadConfig(filepath string) (*ControlPlaneConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (out *ControlPlaneConfig, err error) {
	var _out *ControlPlaneConfigMarshall
	err = yaml.Unmarshal(conf, &_out)
	if err != nil {
		return nil, err
	}
	out = TrySeal(_out)
	return out, nil
}
