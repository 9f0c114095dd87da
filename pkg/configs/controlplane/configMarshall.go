package controlplane

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/controlplane.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// Configuration of the control-plane daemon.
//
// This type is marshalling value and mutable.
// Consider to use the immutable version, `ControlPlaneConfig`.
type ControlPlaneConfigMarshall struct {
	Port     int32                  `yaml:"port,omitempty"`
	Cluster  *ClusterConfigMarshall `yaml:"cluster"`
	Apps     *AppsConfigMarshall    `yaml:"apps"`
	Database string                 `yaml:"database"`
	Session  *SessionConfigMarshall `yaml:"session"`
}

var _ Marshalled[*ControlPlaneConfig] = &ControlPlaneConfigMarshall{}

func (c *ControlPlaneConfigMarshall) trySeal(path string) *ControlPlaneConfig {
	port := c.Port
	if port == 0 {
		port = 8080
	}
	return &ControlPlaneConfig{
		port:     port,
		cluster:  nonnil(c.Cluster, path+".cluster").trySeal(path + ".cluster"),
		apps:     nonnil(c.Apps, path+".apps").trySeal(path + ".apps"),
		database: required(c.Database, path+".database"),
		session:  nonnil(c.Session, path+".session").trySeal(path + ".session"),
	}
}

type ClusterConfigMarshall struct {
	Namespace  string `yaml:"namespace"`
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
}

func (c *ClusterConfigMarshall) trySeal(path string) *ClusterConfig {
	return &ClusterConfig{
		namespace:  required(c.Namespace, path+".namespace"),
		kubeconfig: c.Kubeconfig,
	}
}

type AppsConfigMarshall struct {
	BaseDomain   string `yaml:"baseDomain"`
	RegistryHost string `yaml:"registryHost"`
	TTL          string `yaml:"ttl,omitempty"`
	PushWindow   string `yaml:"pushWindow,omitempty"`
}

func (a *AppsConfigMarshall) trySeal(path string) *AppsConfig {
	return &AppsConfig{
		baseDomain:   required(a.BaseDomain, path+".baseDomain"),
		registryHost: required(a.RegistryHost, path+".registryHost"),
		ttl:          duration(a.TTL, 24*time.Hour, path+".ttl"),
		pushWindow:   duration(a.PushWindow, 15*time.Minute, path+".pushWindow"),
	}
}

type SessionConfigMarshall struct {
	SigningKey string   `yaml:"signingKey"`
	Admins     []string `yaml:"admins,omitempty"`
}

func (s *SessionConfigMarshall) trySeal(path string) *SessionConfig {
	return &SessionConfig{
		signingKey: required(s.SigningKey, path+".signingKey"),
		admins:     s.Admins,
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func duration(v string, fallback time.Duration, path string) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	if d <= 0 {
		panic(path + " must be positive")
	}
	return d
}
