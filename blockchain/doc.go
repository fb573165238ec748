/*
Package blockchain implements Spreadcoin block handling and chain selection
rules.

A BlockChain accepts blocks through ProcessBlock. Each block goes through a
set of context free checks (proof of work against its own bits, timestamp,
miner signature presence, coinbase position and merkle root) before its
parent is looked up. Blocks whose parent is unknown are held in a bounded
orphan pool and retried once the parent connects. Blocks with a known parent
are checked against it (height, difficulty transition and, when a
ScriptVerifier is configured, the scripts of every non-coinbase input under
the rule variant of the block's height), stored and connected to the chain
graph.

The best chain is the branch with the most cumulative work. A branch with
exactly as much work as the best chain does not replace it. When a branch
overtakes the best chain, observers see the blocks of the old branch
disconnected from the tip back to the fork point and the blocks of the new
branch connected from the fork point forward.

Errors

Errors returned by this package are either the raw errors provided by
underlying calls or of type blockchain.RuleError. Use IsRuleError to check
for a specific rule violation.
*/
package blockchain
