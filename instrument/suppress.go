package instrument

// DomainLockSuppression names the runtime's internal domain-coordination
// lock. That lock is taken for unrelated activities such as spawning
// parallel domains, so treating its acquisitions as synchronization would
// weave spurious happens-before edges between unrelated threads and mask
// genuine races. The declaration tells the runtime to ignore it.
const DomainLockSuppression = "mutex:loom_domain_lock"

// Suppressions returns the declarations the pass emits for the runtime.
// The table is fixed: user lock symbols never appear here, so misuse of
// user locks stays detectable.
func Suppressions() []string {
	return []string{DomainLockSuppression}
}
