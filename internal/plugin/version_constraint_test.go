package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion_MajorOnly(t *testing.T) {
	v, err := ParseVersion("1")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1}, v)
}

func TestParseVersion_MajorMinor(t *testing.T) {
	v, err := ParseVersion("1.2")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 2}, v)
}

func TestParseVersion_Full(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 2, Patch: 3}, v)
}

func TestParseVersion_Empty(t *testing.T) {
	_, err := ParseVersion("")
	assert.Error(t, err)
}

func TestParseVersion_Invalid(t *testing.T) {
	_, err := ParseVersion("x.y.z")
	assert.Error(t, err)
}

func TestVersionConstraint_GreaterEqual(t *testing.T) {
	c, err := ParseVersionConstraint(">=1.2.0")
	require.NoError(t, err)
	assert.True(t, c.IsSatisfiedBy(Version{1, 2, 0}))
	assert.True(t, c.IsSatisfiedBy(Version{1, 3, 0}))
	assert.False(t, c.IsSatisfiedBy(Version{1, 1, 0}))
}

func TestVersionConstraint_CompatibleRelease(t *testing.T) {
	c, err := ParseVersionConstraint("~=1.5")
	require.NoError(t, err)
	assert.True(t, c.IsSatisfiedBy(Version{1, 5, 0}))
	assert.True(t, c.IsSatisfiedBy(Version{1, 9, 9}))
	assert.False(t, c.IsSatisfiedBy(Version{2, 0, 0}))
	assert.False(t, c.IsSatisfiedBy(Version{1, 4, 0}))
}

func TestVersionConstraint_BareVersionIsEqual(t *testing.T) {
	c, err := ParseVersionConstraint("1.0.0")
	require.NoError(t, err)
	assert.Equal(t, OpEqual, c.Op)
}

func TestVersionConstraint_LessThan(t *testing.T) {
	c, err := ParseVersionConstraint("<2.0.0")
	require.NoError(t, err)
	assert.True(t, c.IsSatisfiedBy(Version{1, 9, 9}))
	assert.False(t, c.IsSatisfiedBy(Version{2, 0, 0}))
}

func TestParseDependencySpec_NameOnly(t *testing.T) {
	spec, err := ParseDependencySpec("NetworkPlugin")
	require.NoError(t, err)
	assert.Equal(t, "NetworkPlugin", spec.Name)
	assert.Empty(t, spec.Constraints)
	assert.True(t, spec.IsSatisfiedBy(Version{9, 9, 9}))
}

func TestParseDependencySpec_SingleConstraint(t *testing.T) {
	spec, err := ParseDependencySpec("NetworkPlugin>=1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "NetworkPlugin", spec.Name)
	require.Len(t, spec.Constraints, 1)
	assert.True(t, spec.IsSatisfiedBy(Version{1, 0, 0}))
	assert.False(t, spec.IsSatisfiedBy(Version{0, 9, 0}))
}

func TestParseDependencySpec_MultipleConstraints(t *testing.T) {
	spec, err := ParseDependencySpec("CoreLib>=1.0,<2.0")
	require.NoError(t, err)
	assert.Equal(t, "CoreLib", spec.Name)
	require.Len(t, spec.Constraints, 2)
	assert.True(t, spec.IsSatisfiedBy(Version{1, 5, 0}))
	assert.False(t, spec.IsSatisfiedBy(Version{2, 0, 0}))
}

func TestParseDependencySpec_Empty(t *testing.T) {
	_, err := ParseDependencySpec("")
	assert.Error(t, err)
}

func TestParseDependencySpec_MissingName(t *testing.T) {
	_, err := ParseDependencySpec(">=1.0.0")
	assert.Error(t, err)
}

func TestDependencySpec_ConstraintsString(t *testing.T) {
	anyVer, _ := ParseDependencySpec("Foo")
	assert.Equal(t, "(any version)", anyVer.ConstraintsString())

	withVer, _ := ParseDependencySpec("Foo>=1.0,<2.0")
	assert.Equal(t, ">=1.0.0, <2.0.0", withVer.ConstraintsString())
}
