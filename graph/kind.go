package graph

// kind discriminates a vertex's operator. Forward and backward both
// dispatch on it; this is the tagged-variant design spec.md §9 asks
// for in place of a class hierarchy of Operation objects — one
// vertex record per node, no per-node heap allocation beyond the
// record itself.
type kind int

const (
	kindInput kind = iota
	kindParameter
	kindAdd
	kindSub
	kindMul
	kindDiv
	kindAddK
	kindSubK
	kindKSub
	kindMulK
	kindDivK
	kindKDiv
	kindMatMul
	kindTranspose
	kindRelu
	kindSigmoid
	kindTanh
	kindExp
	kindSum
	kindBatchMean
	kindSlice
	kindConcat
	kindDropout
	kindSoftmaxCrossEntropy
)

func (k kind) String() string {
	switch k {
	case kindInput:
		return "input"
	case kindParameter:
		return "parameter"
	case kindAdd:
		return "add"
	case kindSub:
		return "sub"
	case kindMul:
		return "mul"
	case kindDiv:
		return "div"
	case kindAddK:
		return "add_k"
	case kindSubK:
		return "sub_k"
	case kindKSub:
		return "ksub"
	case kindMulK:
		return "mul_k"
	case kindDivK:
		return "div_k"
	case kindKDiv:
		return "kdiv"
	case kindMatMul:
		return "matmul"
	case kindTranspose:
		return "transpose"
	case kindRelu:
		return "relu"
	case kindSigmoid:
		return "sigmoid"
	case kindTanh:
		return "tanh"
	case kindExp:
		return "exp"
	case kindSum:
		return "sum"
	case kindBatchMean:
		return "batch_mean"
	case kindSlice:
		return "slice"
	case kindConcat:
		return "concat"
	case kindDropout:
		return "dropout"
	case kindSoftmaxCrossEntropy:
		return "softmax_cross_entropy"
	default:
		return "unknown"
	}
}
