package contract

// OracleABI is the interface of the prompt contract that fronts the AI oracle.
const OracleABI = `[
  {"type":"constructor","stateMutability":"nonpayable","inputs":[
    {"internalType":"contract IAIOracle","name":"_aiOracle","type":"address"}]},
  {"type":"error","name":"UnauthorizedCallbackSource","inputs":[
    {"internalType":"contract IAIOracle","name":"expected","type":"address"},
    {"internalType":"contract IAIOracle","name":"found","type":"address"}]},
  {"type":"event","name":"promptRequest","anonymous":false,"inputs":[
    {"indexed":false,"internalType":"uint256","name":"requestId","type":"uint256"},
    {"indexed":false,"internalType":"address","name":"sender","type":"address"},
    {"indexed":false,"internalType":"uint256","name":"modelId","type":"uint256"},
    {"indexed":false,"internalType":"string","name":"prompt","type":"string"}]},
  {"type":"event","name":"promptsUpdated","anonymous":false,"inputs":[
    {"indexed":false,"internalType":"uint256","name":"requestId","type":"uint256"},
    {"indexed":false,"internalType":"string","name":"output","type":"string"},
    {"indexed":false,"internalType":"bytes","name":"callbackData","type":"bytes"}]},
  {"type":"function","name":"aiOracle","stateMutability":"view","inputs":[],"outputs":[
    {"internalType":"contract IAIOracle","name":"","type":"address"}]},
  {"type":"function","name":"aiOracleCallback","stateMutability":"nonpayable","inputs":[
    {"internalType":"uint256","name":"requestId","type":"uint256"},
    {"internalType":"bytes","name":"output","type":"bytes"},
    {"internalType":"bytes","name":"callbackData","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"calculateAIResult","stateMutability":"payable","inputs":[
    {"internalType":"uint256","name":"modelId","type":"uint256"},
    {"internalType":"string","name":"prompt","type":"string"}],"outputs":[]},
  {"type":"function","name":"callbackGasLimit","stateMutability":"view","inputs":[
    {"internalType":"uint256","name":"","type":"uint256"}],"outputs":[
    {"internalType":"uint64","name":"","type":"uint64"}]},
  {"type":"function","name":"estimateFee","stateMutability":"view","inputs":[
    {"internalType":"uint256","name":"modelId","type":"uint256"}],"outputs":[
    {"internalType":"uint256","name":"","type":"uint256"}]},
  {"type":"function","name":"isFinalized","stateMutability":"view","inputs":[
    {"internalType":"uint256","name":"requestId","type":"uint256"}],"outputs":[
    {"internalType":"bool","name":"","type":"bool"}]},
  {"type":"function","name":"requests","stateMutability":"view","inputs":[
    {"internalType":"uint256","name":"","type":"uint256"}],"outputs":[
    {"internalType":"address","name":"sender","type":"address"},
    {"internalType":"uint256","name":"modelId","type":"uint256"},
    {"internalType":"bytes","name":"input","type":"bytes"},
    {"internalType":"bytes","name":"output","type":"bytes"}]},
  {"type":"function","name":"setCallbackGasLimit","stateMutability":"nonpayable","inputs":[
    {"internalType":"uint256","name":"modelId","type":"uint256"},
    {"internalType":"uint64","name":"gasLimit","type":"uint64"}],"outputs":[]}
]`
