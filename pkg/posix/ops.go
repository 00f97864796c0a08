package posix

import (
	"github.com/clusterstor-tools/clusterstor/internal/command"
)

// ChownCmd changes the owning user without following symlinks.
func ChownCmd(user, dir string) command.Cmd {
	return command.New("chown", "-h", user, dir)
}

// ChgrpCmd changes the owning group.
func ChgrpCmd(group, dir string) command.Cmd {
	return command.New("chgrp", group, dir)
}

// ChmodCmd sets the permission bits from an octal string such as "2770".
func ChmodCmd(perms, dir string) command.Cmd {
	return command.New("chmod", perms, dir)
}
