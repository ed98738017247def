package tty

import (
	"os"
	"os/exec"
	"os/user"
)

// Permissions reports the process's standing on the host system.
type Permissions struct {
	UID           int      `json:"uid"`
	GID           int      `json:"gid"`
	IsRoot        bool     `json:"is_root"`
	SudoAvailable bool     `json:"sudo_available"`
	Groups        []string `json:"groups"`
}

// permissionGroups maps permission requests to the system group that
// grants them.
var permissionGroups = map[string]string{
	"microphone": "audio",
	"camera":     "video",
	"network":    "netdev",
	"system":     "sudo",
}

// CheckPermissions probes the current process's privileges. The sudo probe
// is non-interactive; a password prompt counts as unavailable.
func CheckPermissions() Permissions {
	p := Permissions{
		UID: os.Getuid(),
		GID: os.Getgid(),
	}
	p.IsRoot = p.UID == 0
	p.SudoAvailable = sudoProbe()
	p.Groups = currentGroups()
	return p
}

// HasGroup reports whether the named permission's group is held.
func (p Permissions) HasGroup(permission string) bool {
	group, ok := permissionGroups[permission]
	if !ok {
		return false
	}
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// GroupFor resolves a permission name to its system group.
func GroupFor(permission string) (string, bool) {
	group, ok := permissionGroups[permission]
	return group, ok
}

func sudoProbe() bool {
	return exec.Command("sudo", "-n", "true").Run() == nil
}

func currentGroups() []string {
	u, err := user.Current()
	if err != nil {
		return nil
	}
	ids, err := u.GroupIds()
	if err != nil {
		return nil
	}

	var names []string
	for _, id := range ids {
		g, err := user.LookupGroupId(id)
		if err != nil {
			continue
		}
		names = append(names, g.Name)
	}
	return names
}
