package domain

// Identifier type values follow the Conversions API user-data field names.
const (
	IdentifierEmail      = "em"
	IdentifierPhone      = "ph"
	IdentifierExternalID = "external_id"
)

// HashedIdentifier is a one-way-hashed PII value used for platform-side user
// matching. Raw PII never leaves the ingestion boundary.
type HashedIdentifier struct {
	Type        string `json:"type"`
	HashedValue string `json:"hashed_value"`
	IsPreHashed bool   `json:"is_pre_hashed"`
}

// NewHashedIdentifier creates a HashedIdentifier for a value hashed by this system.
func NewHashedIdentifier(identifierType, hashedValue string) HashedIdentifier {
	return HashedIdentifier{
		Type:        identifierType,
		HashedValue: hashedValue,
	}
}
