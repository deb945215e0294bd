package storage

// prefixed namespaces every key of an underlying Store.
type prefixed struct {
	base   Store
	prefix string
}

// WithPrefix returns a Store that reads and writes base under prefix+key, so several
// visitors can share one backing store without clobbering each other.
func WithPrefix(base Store, prefix string) Store {
	if prefix == "" {
		return base
	}
	return &prefixed{base: base, prefix: prefix}
}

func (p *prefixed) Read(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	return p.base.Read(p.prefix + key)
}

func (p *prefixed) Write(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return p.base.Write(p.prefix+key, value)
}

func (p *prefixed) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return p.base.Delete(p.prefix + key)
}
