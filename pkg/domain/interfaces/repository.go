package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	RiskConfiguration() RiskConfigurationRepository

	// Close releases the underlying storage client
	Close() error
}
