package mem

import (
	"log"
	"os"
)

// StorageBuilder can build Storage objects.
type StorageBuilder struct {
	defaultValue uint32
	littleEndian bool
	logStores    bool
	logger       StoreLogger
}

// MakeStorageBuilder returns a builder for a big-endian storage that reads
// unmapped words as 0 and does not log stores.
func MakeStorageBuilder() StorageBuilder {
	return StorageBuilder{
		logger: log.New(os.Stdout, "", 0),
	}
}

// WithDefaultValue sets the value returned for unmapped addresses.
func (b StorageBuilder) WithDefaultValue(v uint32) StorageBuilder {
	b.defaultValue = v
	return b
}

// WithLittleEndian marks images as little endian.
func (b StorageBuilder) WithLittleEndian(le bool) StorageBuilder {
	b.littleEndian = le
	return b
}

// WithStoreLogging turns the per-update log on or off.
func (b StorageBuilder) WithStoreLogging(on bool) StorageBuilder {
	b.logStores = on
	return b
}

// WithStoreLogger sets where store records are written.
func (b StorageBuilder) WithStoreLogger(l StoreLogger) StorageBuilder {
	b.logger = l
	return b
}

// Build creates a new empty Storage.
func (b StorageBuilder) Build() *Storage {
	return &Storage{
		data:         make(map[uint32]uint32),
		defaultValue: b.defaultValue,
		littleEndian: b.littleEndian,
		logStores:    b.logStores,
		logger:       b.logger,
	}
}
