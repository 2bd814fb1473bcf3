package plugin

import (
	"strconv"
	"strings"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
)

// ConstraintOp is the comparison operator of a version constraint.
type ConstraintOp uint8

const (
	OpGreaterEqual ConstraintOp = iota
	OpGreaterThan
	OpLessEqual
	OpLessThan
	OpEqual
	OpCompatibleRelease // ~=: same major, minor.patch >= specified
)

func (op ConstraintOp) String() string {
	switch op {
	case OpGreaterEqual:
		return ">="
	case OpGreaterThan:
		return ">"
	case OpLessEqual:
		return "<="
	case OpLessThan:
		return "<"
	case OpEqual:
		return "=="
	case OpCompatibleRelease:
		return "~="
	default:
		return "?"
	}
}

// VersionConstraint is a single operator+version pair, e.g. ">=1.2.0".
type VersionConstraint struct {
	Op      ConstraintOp
	Version Version
}

// IsSatisfiedBy reports whether v satisfies the constraint.
func (c VersionConstraint) IsSatisfiedBy(v Version) bool {
	switch c.Op {
	case OpGreaterEqual:
		return v.Compare(c.Version) >= 0
	case OpGreaterThan:
		return v.Compare(c.Version) > 0
	case OpLessEqual:
		return v.Compare(c.Version) <= 0
	case OpLessThan:
		return v.Compare(c.Version) < 0
	case OpEqual:
		return v.Compare(c.Version) == 0
	case OpCompatibleRelease:
		return v.Compare(c.Version) >= 0 && v.Major == c.Version.Major
	default:
		return false
	}
}

// String formats the constraint as "<op><major>.<minor>.<patch>".
func (c VersionConstraint) String() string {
	return c.Op.String() + strconv.Itoa(int(c.Version.Major)) + "." +
		strconv.Itoa(int(c.Version.Minor)) + "." + strconv.Itoa(int(c.Version.Patch))
}

// ParseVersion parses "major[.minor[.patch]]", e.g. "1" -> {1,0,0},
// "1.2" -> {1,2,0}, "1.2.3" -> {1,2,3}.
func ParseVersion(str string) (Version, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return Version{}, svcerr.InvalidArgument("version", "empty version string")
	}

	parts := strings.SplitN(str, ".", 3)

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return Version{}, svcerr.InvalidArgument("version", "invalid major version: "+str)
	}
	v := Version{Major: uint16(major)}

	if len(parts) == 1 {
		return v, nil
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Version{}, svcerr.InvalidArgument("version", "invalid minor version: "+str)
	}
	v.Minor = uint16(minor)

	if len(parts) == 2 {
		return v, nil
	}

	patch, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return Version{}, svcerr.InvalidArgument("version", "invalid patch version: "+str)
	}
	v.Patch = uint16(patch)

	return v, nil
}

// ParseVersionConstraint parses a constraint string like ">=1.2.0", "<2.0.0",
// or "~=1.5".
func ParseVersionConstraint(spec string) (VersionConstraint, error) {
	spec = strings.TrimLeft(spec, " ")
	if spec == "" {
		return VersionConstraint{}, svcerr.InvalidArgument("constraint", "empty constraint string")
	}

	var c VersionConstraint
	switch {
	case strings.HasPrefix(spec, "~="):
		c.Op = OpCompatibleRelease
		spec = spec[2:]
	case strings.HasPrefix(spec, ">="):
		c.Op = OpGreaterEqual
		spec = spec[2:]
	case strings.HasPrefix(spec, ">"):
		c.Op = OpGreaterThan
		spec = spec[1:]
	case strings.HasPrefix(spec, "<="):
		c.Op = OpLessEqual
		spec = spec[2:]
	case strings.HasPrefix(spec, "<"):
		c.Op = OpLessThan
		spec = spec[1:]
	case strings.HasPrefix(spec, "=="):
		c.Op = OpEqual
		spec = spec[2:]
	default:
		c.Op = OpEqual
	}

	v, err := ParseVersion(spec)
	if err != nil {
		return VersionConstraint{}, err
	}
	c.Version = v
	return c, nil
}

// DependencySpec is a parsed dependency declaration: a plugin name plus
// zero or more version constraints.
type DependencySpec struct {
	Name        string
	Constraints []VersionConstraint
}

// IsSatisfiedBy reports whether every constraint is satisfied by v.
func (d DependencySpec) IsSatisfiedBy(v Version) bool {
	for _, c := range d.Constraints {
		if !c.IsSatisfiedBy(v) {
			return false
		}
	}
	return true
}

// ConstraintsString formats all constraints as a human-readable string.
func (d DependencySpec) ConstraintsString() string {
	if len(d.Constraints) == 0 {
		return "(any version)"
	}
	parts := make([]string, len(d.Constraints))
	for i, c := range d.Constraints {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// ParseDependencySpec parses a dependency string such as:
//
//	"NetworkPlugin"        -> name="NetworkPlugin", no constraints
//	"NetworkPlugin>=1.0.0" -> name="NetworkPlugin", constraints=[>=1.0.0]
//	"CoreLib>=1.0,<2.0"    -> name="CoreLib", constraints=[>=1.0.0, <2.0.0]
func ParseDependencySpec(dep string) (DependencySpec, error) {
	dep = strings.TrimSpace(dep)
	if dep == "" {
		return DependencySpec{}, svcerr.InvalidArgument("dependency", "empty dependency string")
	}

	constraintStart := strings.IndexAny(dep, "><=~")
	if constraintStart == -1 {
		return DependencySpec{Name: dep}, nil
	}

	name := strings.TrimRight(dep[:constraintStart], " ")
	if name == "" {
		return DependencySpec{}, svcerr.InvalidArgument("dependency", "missing plugin name in dependency: "+dep)
	}

	spec := DependencySpec{Name: name}
	remaining := dep[constraintStart:]
	for _, part := range strings.Split(remaining, ",") {
		c, err := ParseVersionConstraint(part)
		if err != nil {
			return DependencySpec{}, err
		}
		spec.Constraints = append(spec.Constraints, c)
	}

	return spec, nil
}

// dependencyName strips any trailing version constraint from a raw
// dependency string, returning just the plugin name it refers to.
func dependencyName(dep string) string {
	if idx := strings.IndexAny(dep, "><=!~"); idx != -1 {
		return dep[:idx]
	}
	return dep
}
