package utils

// RegistryValidator validates a key-value pair before registration
type RegistryValidator[K comparable, V any] func(key K, value V, existing map[K]V) error

// Registry is a keyed table that remembers registration order and runs a
// validator before every registration. It is not synchronized; fill it
// from one goroutine and read it freely afterwards.
type Registry[K comparable, V any] struct {
	items     map[K]V
	order     []K
	validator RegistryValidator[K, V]
}

// NewRegistry creates a registry checked by validator. A nil validator
// accepts everything.
func NewRegistry[K comparable, V any](validator RegistryValidator[K, V]) *Registry[K, V] {
	return &Registry[K, V]{
		items:     make(map[K]V),
		validator: validator,
	}
}

// Check runs the validator without registering anything
func (r *Registry[K, V]) Check(key K, value V) error {
	if r.validator == nil {
		return nil
	}
	return r.validator(key, value, r.items)
}

// Register validates and adds an item. A key that is already registered
// keeps its value and position.
func (r *Registry[K, V]) Register(key K, value V) error {
	if err := r.Check(key, value); err != nil {
		return err
	}
	if _, exists := r.items[key]; exists {
		return nil
	}
	r.items[key] = value
	r.order = append(r.order, key)
	return nil
}

// Get retrieves an item from the registry
func (r *Registry[K, V]) Get(key K) (V, bool) {
	value, exists := r.items[key]
	return value, exists
}

// Has checks if a key exists in the registry
func (r *Registry[K, V]) Has(key K) bool {
	_, exists := r.items[key]
	return exists
}

// Values returns the items in registration order
func (r *Registry[K, V]) Values() []V {
	values := make([]V, len(r.order))
	for i, key := range r.order {
		values[i] = r.items[key]
	}
	return values
}

// Size returns the number of items in the registry
func (r *Registry[K, V]) Size() int {
	return len(r.items)
}
