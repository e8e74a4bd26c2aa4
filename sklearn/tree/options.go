package tree

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the depth of the tree. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) { t.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are drawn at each split.
// Zero, or any value >= the number of features, means all features.
func WithMaxFeatures(n int) Option {
	return func(t *DecisionTreeRegressor) { t.maxFeatures = n }
}

// WithMaxLeafNodes grows the tree best-first until it has at most n leaves.
// Zero means unlimited.
func WithMaxLeafNodes(n int) Option {
	return func(t *DecisionTreeRegressor) { t.maxLeafNodes = n }
}

// WithRandomState seeds the feature sampling.
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.randomState = seed }
}
