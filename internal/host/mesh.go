package host

// Spatial is the owner a per-frame class instance drives.
type Spatial interface {
	Translation() Vector3
	SetTranslation(v Vector3)
	// RotateY rotates around the local Y axis by angle radians.
	RotateY(angle float64)
	SetPhysicsProcess(enabled bool)
	IsPhysicsProcessing() bool
	// SurfaceMaterial returns the material of surface i, or nil.
	SurfaceMaterial(i int) *Material
}

// Material is a spatial material; only the albedo is modelled.
type Material struct {
	Albedo Color
}

// MeshInstance is a headless mesh node.
type MeshInstance struct {
	translation Vector3
	rotationY   float64
	physics     bool
	materials   []*Material
}

var _ Spatial = (*MeshInstance)(nil)

// NewMeshInstance creates a mesh with the given number of surfaces, each
// with its own material.
func NewMeshInstance(surfaces int) *MeshInstance {
	m := &MeshInstance{materials: make([]*Material, surfaces)}
	for i := range m.materials {
		m.materials[i] = &Material{Albedo: Color{R: 1, G: 1, B: 1, A: 1}}
	}
	return m
}

func (m *MeshInstance) Translation() Vector3 { return m.translation }

func (m *MeshInstance) SetTranslation(v Vector3) { m.translation = v }

func (m *MeshInstance) RotateY(angle float64) {
	m.rotationY = normalizeAngle(m.rotationY + angle)
}

// RotationY returns the accumulated rotation around Y, in (-pi, pi].
func (m *MeshInstance) RotationY() float64 { return m.rotationY }

func (m *MeshInstance) SetPhysicsProcess(enabled bool) { m.physics = enabled }

func (m *MeshInstance) IsPhysicsProcessing() bool { return m.physics }

func (m *MeshInstance) SurfaceMaterial(i int) *Material {
	if i < 0 || i >= len(m.materials) {
		return nil
	}
	return m.materials[i]
}
