package format

// errnoNames and signalNames cover the common Darwin values well
// enough for readable output; spec.md's Non-goals explicitly excuse
// imprecision in "interpretation of a handful of enumerated
// constants", so this is intentionally not exhaustive.
var errnoNames = map[int32]string{
	1:  "EPERM",
	2:  "ENOENT",
	3:  "ESRCH",
	4:  "EINTR",
	5:  "EIO",
	9:  "EBADF",
	11: "EAGAIN",
	12: "ENOMEM",
	13: "EACCES",
	14: "EFAULT",
	17: "EEXIST",
	20: "ENOTDIR",
	21: "EISDIR",
	22: "EINVAL",
	24: "EMFILE",
	32: "EPIPE",
	35: "EDEADLK",
	60: "ETIMEDOUT",
	61: "ECONNREFUSED",
}

var signalNames = map[int32]string{
	1:  "SIGHUP",
	2:  "SIGINT",
	3:  "SIGQUIT",
	4:  "SIGILL",
	5:  "SIGTRAP",
	6:  "SIGABRT",
	8:  "SIGFPE",
	9:  "SIGKILL",
	11: "SIGSEGV",
	13: "SIGPIPE",
	14: "SIGALRM",
	15: "SIGTERM",
	17: "SIGCHLD",
	19: "SIGSTOP",
	20: "SIGTSTP",
}
