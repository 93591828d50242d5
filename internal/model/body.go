package model

import "maps"

// BodyKind discriminates the payload stored in a block body.
type BodyKind string

var (
	// BodyGenesis marks the fixed payload of the genesis block.
	BodyGenesis BodyKind = "genesis"
	// BodyStarClaim marks a payload admitted through the ownership protocol.
	BodyStarClaim BodyKind = "star_claim"
)

// GenesisData is the sentinel text carried by the genesis body.
const GenesisData = "Genesis Block"

// Star is an application-opaque set of descriptive fields (ra, dec, story, ...).
type Star map[string]string

// Clone returns an independent copy of s.
func (s Star) Clone() Star {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// StarClaim binds a star payload to the wallet address that proved ownership.
type StarClaim struct {
	WalletAddress string `json:"owner"`
	Message       string `json:"message"`
	Signature     string `json:"signature"`
	Star          Star   `json:"star"`
}

// Body is the decoded payload of a block. Exactly one of Data (genesis) or
// Claim (star claim) is meaningful, selected by Kind.
type Body struct {
	Kind  BodyKind   `json:"kind"`
	Data  string     `json:"data,omitempty"`
	Claim *StarClaim `json:"claim,omitempty"`
}

// GenesisBody returns the fixed genesis payload.
func GenesisBody() Body {
	return Body{Kind: BodyGenesis, Data: GenesisData}
}

// StarClaimBody wraps a claim into a block payload.
func StarClaimBody(claim StarClaim) Body {
	claim.Star = claim.Star.Clone()
	return Body{Kind: BodyStarClaim, Claim: &claim}
}

// OwnedBy reports whether the body is a star claim registered by address.
func (b Body) OwnedBy(address string) bool {
	return b.Kind == BodyStarClaim && b.Claim != nil && b.Claim.WalletAddress == address
}

// OwnedStar is a star payload together with the height of the block holding it.
type OwnedStar struct {
	Height uint64    `json:"height"`
	Claim  StarClaim `json:"claim"`
}
