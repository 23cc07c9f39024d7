package graph

// NodeType tags the kind of identity element a node represents.
type NodeType string

// Known node types. Any other non-empty tag is accepted.
const (
	NodeCustomer    NodeType = "Customer"
	NodeEmail       NodeType = "Email"
	NodePhone       NodeType = "Phone"
	NodeSSN         NodeType = "SSN"
	NodeAccount     NodeType = "Account"
	NodeTransaction NodeType = "Transaction"
	NodeBank        NodeType = "Bank"
	NodeMerchant    NodeType = "Merchant"
)

// EdgeType tags the relationship an edge represents.
type EdgeType string

// Known relationship types. Any other non-empty tag is accepted.
const (
	EdgeHasEmail   EdgeType = "HAS_EMAIL"
	EdgeHasPhone   EdgeType = "HAS_PHONE"
	EdgeHasSSN     EdgeType = "HAS_SSN"
	EdgeHasAccount EdgeType = "HAS_ACCOUNT"
	EdgePerforms   EdgeType = "PERFORMS"
	EdgeBenefitsTo EdgeType = "BENEFITS_TO"
)

// Node is a vertex of the identity graph. ID is an opaque unique key.
type Node struct {
	ID    string   `json:"id" yaml:"id"`
	Type  NodeType `json:"type" yaml:"type"`
	Value string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// Edge is a stored relationship. Direction is kept as ingested but the
// analytics engines only ever look at the undirected projection.
type Edge struct {
	ID     uint64   `json:"id,omitempty" yaml:"id,omitempty"`
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Type   EdgeType `json:"type" yaml:"type"`
}

// Other returns the endpoint opposite to id.
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// RiskTier is the ordered classification derived from fused scores.
type RiskTier int

const (
	TierNone RiskTier = iota
	TierMonitor
	TierReview
	TierExclude
)

// String returns the display name of a tier
func (t RiskTier) String() string {
	switch t {
	case TierNone:
		return "None"
	case TierMonitor:
		return "Monitor"
	case TierReview:
		return "Review"
	case TierExclude:
		return "Exclude"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the tier by name so reports stay readable.
func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// NodeState is the annotation the maintenance cycle computes for one node.
// Nil score pointers mean the score was never computed.
type NodeState struct {
	DegreeScore         *int     `json:"degree_score,omitempty"`
	ClosenessScore      *float64 `json:"closeness_score,omitempty"`
	IsArticulationPoint bool     `json:"is_articulation_point"`
	RiskScore           int      `json:"risk_score"`
	RiskTier            RiskTier `json:"risk_tier"`
	Labels              []string `json:"labels,omitempty"`
}
