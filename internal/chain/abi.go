package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Read-only subset of the ERC-20 interface.
const erc20JSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"symbol","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

// Read-only subset of the MasterChef staking contract. The reward token is
// called ANT in the contract's own naming.
const masterChefJSON = `[
	{"type":"function","name":"poolInfo","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"}],
	 "outputs":[{"name":"lpToken","type":"address"},{"name":"allocPoint","type":"uint256"},
	            {"name":"lastRewardBlock","type":"uint256"},{"name":"accANTPerShare","type":"uint256"}]},
	{"type":"function","name":"userInfo","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],
	 "outputs":[{"name":"amount","type":"uint256"},{"name":"rewardDebt","type":"uint256"}]},
	{"type":"function","name":"pendingANT","stateMutability":"view",
	 "inputs":[{"name":"_pid","type":"uint256"},{"name":"_user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"poolLength","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalAllocPoint","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"ANTPerBlock","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	ERC20ABI      = mustParseABI(erc20JSON)
	MasterChefABI = mustParseABI(masterChefJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("chain: invalid ABI: " + err.Error())
	}
	return parsed
}
