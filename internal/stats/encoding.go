package stats

// Enumerations encode by name in JSON and YAML output.

func (b Bucket) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// MarshalText encodes the set as a comma-separated list of bucket names.
func (s BucketSet) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (v Variable) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (s Strength) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (m Metric) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
