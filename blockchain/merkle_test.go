package blockchain

import (
	"bytes"
	"testing"

	"github.com/spreadcoin/spreadd/chaincfg"
	"github.com/spreadcoin/spreadd/util/chainhash"
	"github.com/spreadcoin/spreadd/wire"
)

// block200358Bytes is main network block 200358 with four transactions and a
// miner signature.
var block200358Bytes = hexToBytes(`
	0200000029fc49241d294664bb56fe608100087daeda209e72ee40cfac229a329908b71e
	41f11957f8188d0fa607fc3146144c5ec664ac6beb4fc5a896d81d561f7e3c931ce8a154
	00000000a2ee061ca60e030006f600000894a40e43a71966dac50de0f962821e0fa6c68e
	4d181fa5bbad4592aea653901b915c2925d1ace70600368fd2060f9a27d70a57426fa8ce
	7adab176e2d12359acc40873cccd86dbda5130fa1e3a12dc6d000c81f5ff3f877b94e271
	ab1b126a2404010000000100000000000000000000000000000000000000000000000000
	00000000000000ffffffff020104ffffffff01e9fdbe25000000001614282502d4a3de08
	9ad7a7ba763dbdd5a7b931e53fac000000000100000001e7906c5e12020bb16e4c12d95c
	c3e57d55d7ea4a1f1b4a9bce7a1b802a0b544f0000000043421c6757377026984e1067dd
	1a4bde326d1ff7f8d80a5d7a937585e5c62382a3af97ac6c2c5d77d70cfdd70cdf39ffab
	e2bb367a83002b0af22dbeb8bf2a9d6d3f3d01ffffffff0280098d250000000016140be0
	06a3ccb419f722e559065625f98e5a8003e5ac585a3400000000001614ef72e062bf0ded
	cca5a668b0fb1a843e5cfca99eac000000000100000004312922b0281272b994d9ae4a3f
	ef076e0fb96c5fe81fb843623899346115a4000000000043421c41c7f1643976f8a5ee5c
	66871206081551da5fbf6800962df17b74fd2804cd960e913f6b7ea36a6441d88c721c7e
	efbea20f2958b6796f191587cf2a7055bb7701ffffffffe1579f86385cae40ad9ab8e999
	1be2feb836ad55bb79947d31b7eb52268aedba0000000043421c9cdd056741f5e9738015
	7e65bce24fe97806e0805d89f8dcfc29a8da278d9840ab9461d510b062dde9026e3fa3ae
	b7d1ab69379cd5e2a3a3be2dd1ddf990834701ffffffff8e22c477fd48f68e65a3893591
	e2f2ca153228e0bac90334e840db9eca5262250000000043421c30e1730a7977ab38b438
	fcfeac47be9b2833ddf7448917324d0c33d2192c240aff4d4aead17ac68697d5141184cb
	ea9d2c9684211217adcf3d224fd31dc11ac701ffffffffa80a64fd9fc91e1f8c81df8645
	6e8fa528fe5c99618e44ffc72aec98044b26e90000000043421c53fde149633091ddb459
	5d591291a9b5160d9854687b75200d3d1e8d9081050b1c706a48ccda58d46d71b2a523b3
	399a03081c43d8e47468741a6e6f6ee6ee4101ffffffff020462350000000000161484de
	6f94e76d4dc8cc1e3d92b370f1044990ac6eac80bccc960000000016140be006a3ccb419
	f722e559065625f98e5a8003e5ac0000000001000000044b1f918dab489a83da5449720c
	62174c04cd34f3ec42f81245765fe108565f100100000043421b9d6658f4dda6d2848e14
	2c09e8332d7045133eae6b7608dc639a89c4f22c4c47088b3b59faee66b409ad2cd4b4e7
	86108d8c9473cff808202c346825b9faae1001ffffffff0858a852d0ea55055fa2b33021
	4bf697a23498a76bec7354128f7ba2d7333a760000000043421b27aae0cbf2e5a108a3be
	82f7b64219cc7a3a05388d5ad4d7a9921eda61c72cdde559481b5e742472bd9d5bf6359a
	d8ff327275b682b31b9b0b18d3f9dc841f6e01ffffffff7c9518d50cd55998d19802cc96
	b7ef0a8e4287db0bdbd3e48507ee6f26b83b980000000043421c40634992b62754e0f077
	8e59711fd0b0f9585460c390cf974b3ae53dcff5b383cabe81b7d93bd17379b61268fdb6
	89a8b6cb2c921d49c6bfedd58ce6739b289201ffffffff45d2e90f1f401d5a5e1d69563f
	1d43b64fc9f867a59fc23de7842ea4415b23660000000043421c474821a74560a731182c
	0185dfaa10d4c43f456892396390da0293532648d1275eaaeaa9a4f57ee32dac155c86c4
	b8dfc5080a0ec14a253f054fe674c4a145eb01ffffffff0280a9b24b0000000016140be0
	06a3ccb419f722e559065625f98e5a8003e5acc80b20000000000016149b614013f64949
	ef9963873ade7804dead45eccdac00000000`)

// loadBlock200358 decodes block 200358 with the main network codec.
func loadBlock200358(t *testing.T, lazy bool) *wire.MsgBlock {
	block := &wire.MsgBlock{}
	err := block.Deserialize(bytes.NewReader(block200358Bytes),
		chaincfg.MainNetParams.Codec(lazy))
	if err != nil {
		t.Fatalf("Deserialize: unexpected error %v", err)
	}
	return block
}

// TestMerkle tests the BuildMerkleTreeStore API.
func TestMerkle(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		block := loadBlock200358(t, lazy)
		merkles := BuildMerkleTreeStore(block.Transactions())
		calculatedMerkleRoot := merkles[len(merkles)-1]
		wantMerkle := block.Header().MerkleRoot()
		if !wantMerkle.IsEqual(calculatedMerkleRoot) {
			t.Errorf("BuildMerkleTreeStore: merkle root mismatch - "+
				"got %v, want %v", calculatedMerkleRoot, wantMerkle)
		}
		if len(merkles) != 7 {
			t.Errorf("BuildMerkleTreeStore: got %d entries, want 7", len(merkles))
		}
	}
}

// TestMerkleOddLeaves ensures a level with an odd number of nodes pairs the
// last node with itself.
func TestMerkleOddLeaves(t *testing.T) {
	txs := []*wire.MsgTx{coinbaseTx(1, 1), coinbaseTx(1, 2), coinbaseTx(1, 3)}
	h := make([]*chainhash.Hash, len(txs))
	for i, tx := range txs {
		h[i] = tx.TxHash()
	}

	want := HashMerkleBranches(HashMerkleBranches(h[0], h[1]),
		HashMerkleBranches(h[2], h[2]))
	if got := CalcMerkleRoot(txs); !got.IsEqual(want) {
		t.Errorf("CalcMerkleRoot: got %s, want %s", got, want)
	}

	// A single transaction is its own root.
	if got := CalcMerkleRoot(txs[:1]); !got.IsEqual(h[0]) {
		t.Errorf("CalcMerkleRoot single: got %s, want %s", got, h[0])
	}
	if got := CalcMerkleRoot(nil); !got.IsEqual(&chainhash.Hash{}) {
		t.Errorf("CalcMerkleRoot empty: got %s, want zero hash", got)
	}
}
