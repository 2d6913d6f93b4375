// Package source defines the collaborator contract between the lookup
// orchestrator and upstream domain sources: the uniform Record every source
// produces, the LookupError taxonomy every failure maps into, the Source
// interface vendors implement, and a registry preserving configured
// fallback order. Concrete sources live in subpackages (rdap, whois) and a
// scripted fake for tests lives in sourcetest.
package source
