package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// identityABI covers the read methods and events of the reputation identity contract
const identityABI = `[
	{"type":"function","name":"hasIdentity","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"tokenIdOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getIdentity","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"reputationScore","type":"uint256"},{"name":"skillLevel","type":"uint256"},{"name":"achievementCount","type":"uint256"},{"name":"lastUpdate","type":"uint256"},{"name":"primarySkill","type":"string"},{"name":"verified","type":"bool"}]},
	{"type":"function","name":"totalIdentities","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"IdentityCreated","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"owner","type":"address","indexed":true},{"name":"username","type":"string","indexed":false}]},
	{"type":"event","name":"PriceUpdated","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"oldPrice","type":"uint256","indexed":false},{"name":"newPrice","type":"uint256","indexed":false},{"name":"reason","type":"string","indexed":false}]},
	{"type":"event","name":"GoalCompleted","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"goalIndex","type":"uint256","indexed":false},{"name":"rewardPoints","type":"uint256","indexed":false}]},
	{"type":"event","name":"GoalFailed","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"goalIndex","type":"uint256","indexed":false},{"name":"penaltyBps","type":"uint256","indexed":false}]},
	{"type":"event","name":"ReputationUpdated","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"newScore","type":"uint256","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}]},
	{"type":"event","name":"IdentityPurchased","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}]}
]`

var parsedABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(identityABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Event signatures
var (
	identityCreatedSig   = crypto.Keccak256Hash([]byte("IdentityCreated(uint256,address,string)"))
	priceUpdatedSig      = crypto.Keccak256Hash([]byte("PriceUpdated(uint256,uint256,uint256,string)"))
	goalCompletedSig     = crypto.Keccak256Hash([]byte("GoalCompleted(uint256,uint256,uint256)"))
	goalFailedSig        = crypto.Keccak256Hash([]byte("GoalFailed(uint256,uint256,uint256)"))
	reputationUpdatedSig = crypto.Keccak256Hash([]byte("ReputationUpdated(uint256,uint256,uint256)"))
	identityPurchasedSig = crypto.Keccak256Hash([]byte("IdentityPurchased(uint256,address,address,uint256)"))
)

// EventSignatures returns the topic hashes the subscription filter listens on,
// one per event kind the engine registers a handler for.
func EventSignatures() []common.Hash {
	return []common.Hash{
		identityCreatedSig,
		priceUpdatedSig,
		goalCompletedSig,
		goalFailedSig,
		reputationUpdatedSig,
		identityPurchasedSig,
	}
}
