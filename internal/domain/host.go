package domain

// Handle identifies one open control connection. The zero Handle means no
// connection is held.
type Handle uint64

type HostRecord struct {
	Hostname  string
	Address   string
	Handle    Handle
	Connected bool
}

// Registry is the ordered, immutable host list of one session. The index of a
// host in the registry is its identity for every per-host operation.
type Registry struct {
	hosts []HostRecord
}

func NewRegistry(hosts []HostRecord) Registry {
	copied := make([]HostRecord, len(hosts))
	copy(copied, hosts)
	return Registry{hosts: copied}
}

func (r Registry) Len() int {
	return len(r.hosts)
}

func (r Registry) Hosts() []HostRecord {
	copied := make([]HostRecord, len(r.hosts))
	copy(copied, r.hosts)
	return copied
}
