// Package visibility defines the entities and pure rules of the map
// visibility resolution engine: which of a tenant's configured maps a
// given viewer may see, based on the upstream platform's sharing state
// and the tenant's own access overrides.
package visibility

// AccessFlag is the tenant-administrator-controlled access override on
// a configured map.
type AccessFlag string

const (
	AccessPublic  AccessFlag = "public"
	AccessPrivate AccessFlag = "private"
)

// MapConfig is one entry in a tenant's configured map list. It is
// created and edited by tenant administrators elsewhere; the engine
// treats it as read-only.
type MapConfig struct {
	ID           string     `json:"id"`
	Title        string     `json:"title,omitempty"`
	ArcGISItemID string     `json:"arcgisItemId,omitempty"`
	Access       AccessFlag `json:"access,omitempty"`
}

// IsPrivate reports whether the administrator has overridden this map
// to private. The zero value and "public" both mean public.
func (m *MapConfig) IsPrivate() bool {
	return m.Access == AccessPrivate
}

// SharingResult is the upstream platform's answer for one item: is the
// item shared publicly. Detail carries optional diagnostic metadata
// (probe errors, HTTP status); it is advisory and never changes
// control flow.
type SharingResult struct {
	IsPublic bool   `json:"isPublic"`
	Detail   string `json:"detail,omitempty"`
}

// Viewer is the identity context of the current session. The engine
// only reads it; session issuance and ArcGIS account linking happen in
// the surrounding application.
type Viewer struct {
	SessionID            string `json:"sessionId,omitempty"`
	HasSession           bool   `json:"hasSession"`
	LinkedArcGISUsername string `json:"linkedArcGISUsername,omitempty"`
	DelegatedToken       string `json:"-"`
}

// CanProbeDelegated reports whether the delegated-access check applies
// to this viewer. Both a linked ArcGIS identity and a stored delegated
// token are required; a token without a recorded link is ignored.
func (v *Viewer) CanProbeDelegated() bool {
	return v.HasSession && v.LinkedArcGISUsername != "" && v.DelegatedToken != ""
}

// Classification is the per-map outcome of combining the platform's
// sharing state with the tenant's access override.
type Classification string

const (
	// EffectivelyPublic means both authorities agree the map needs no
	// authentication.
	EffectivelyPublic Classification = "effectivelyPublic"

	// ConfigRestricted means the platform says public but the tenant
	// administrator overrode it to private. An application session
	// alone unlocks it.
	ConfigRestricted Classification = "configRestricted"

	// PlatformRestricted means the platform itself denies public
	// access. A delegated ArcGIS credential is required regardless of
	// the tenant's access flag.
	PlatformRestricted Classification = "platformRestricted"
)

// ResolutionResult is the engine's output for one (map list, viewer)
// snapshot.
type ResolutionResult struct {
	// Accessible is the ordered list of maps this viewer may open.
	// Unlocked platform-restricted maps come first, then
	// config-restricted, then effectively-public; each group keeps the
	// configured order.
	Accessible []MapConfig `json:"accessible"`

	// Public is the effectively-public subset, in configured order.
	Public []MapConfig `json:"public"`

	// Restricted is every map that is not effectively public, in
	// configured order.
	Restricted []MapConfig `json:"restricted"`

	// LoginRequired is true iff the viewer has no application session
	// and nothing is effectively public.
	LoginRequired bool `json:"loginRequired"`

	// HasCompleted signals the resolution pipeline has finished at
	// least once for the current inputs.
	HasCompleted bool `json:"hasCompleted"`
}
