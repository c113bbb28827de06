package service

import (
	"syscall"

	gops "github.com/shirou/gopsutil/v4/process"
)

// descendantPIDs returns pid and every live descendant, post-order (children
// before parents), so signals reach leaves first and shells spawned by
// services cannot leave orphans.
func descendantPIDs(pid int) []int {
	root, err := gops.NewProcess(int32(pid))
	if err != nil {
		return []int{pid}
	}
	var out []int
	var walk func(p *gops.Process)
	walk = func(p *gops.Process) {
		children, err := p.Children()
		if err == nil {
			for _, c := range children {
				walk(c)
			}
		}
		out = append(out, int(p.Pid))
	}
	walk(root)
	return out
}

// signalTree delivers sig to the whole process tree rooted at pid,
// post-order, then to the process group as a safety net for children that
// detached between enumeration and delivery.
func signalTree(pid int, sig syscall.Signal) {
	for _, p := range descendantPIDs(pid) {
		_ = killProcess(p, sig)
	}
	_ = killGroup(pid, sig)
}
