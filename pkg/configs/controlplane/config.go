package controlplane

import (
	"time"
)

// ControlPlaneConfig is the sealed, immutable daemon configuration.
//
// to get an instance, use `ControlPlaneConfigMarshall.TrySeal()` .
type ControlPlaneConfig struct {
	port     int32
	cluster  *ClusterConfig
	apps     *AppsConfig
	database string
	session  *SessionConfig
}

func (c *ControlPlaneConfig) Port() int32 {
	return c.port
}

func (c *ControlPlaneConfig) Cluster() *ClusterConfig {
	return c.cluster
}

func (c *ControlPlaneConfig) Apps() *AppsConfig {
	return c.apps
}

// Connection string for the shared app database.
func (c *ControlPlaneConfig) Database() string {
	return c.database
}

func (c *ControlPlaneConfig) Session() *SessionConfig {
	return c.session
}

type ClusterConfig struct {
	namespace  string
	kubeconfig string
}

// k8s namespace where apps are deployed.
func (c *ClusterConfig) Namespace() string {
	return c.namespace
}

// explicit kubeconfig path. Empty means "use the ambient credentials"
// (home kubeconfig, KUBECONFIG, or in-cluster).
func (c *ClusterConfig) Kubeconfig() string {
	return c.kubeconfig
}

type AppsConfig struct {
	baseDomain   string
	registryHost string
	ttl          time.Duration
	pushWindow   time.Duration
}

// apex domain under which app hostnames live.
func (a *AppsConfig) BaseDomain() string {
	return a.baseDomain
}

// image registry callers push to.
func (a *AppsConfig) RegistryHost() string {
	return a.registryHost
}

// how long an app lives past its latest deploy. default = 24h
func (a *AppsConfig) TTL() time.Duration {
	return a.ttl
}

// how long a push credential stays valid. default = 15m
func (a *AppsConfig) PushWindow() time.Duration {
	return a.pushWindow
}

type SessionConfig struct {
	signingKey string
	admins     []string
}

func (s *SessionConfig) SigningKey() []byte {
	return []byte(s.signingKey)
}

// identities allowed to hold admin scope.
func (s *SessionConfig) Admins() []string {
	return s.admins
}
