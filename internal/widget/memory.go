package widget

// MapStore is an in-memory Store for tests and background callers.
type MapStore map[interface{}]interface{}

func (m MapStore) Get(key interface{}) interface{} { return m[key] }

func (m MapStore) Set(key interface{}, val interface{}) { m[key] = val }

func (m MapStore) Delete(key interface{}) { delete(m, key) }

func (m MapStore) Save() error { return nil }
