package registry

import "nlpd/pkg/types"

var presets = map[types.TaskID]string{
	types.TaskSentiment: "The new framework architecture significantly improves render performance. " +
		"However, the documentation is somewhat sparse and the learning curve is steep for beginners.",
	types.TaskNER: "Elon Musk announced that SpaceX plans to launch the Starship rocket from Boca Chica, Texas next month. " +
		"NASA has already secured a contract for the Artemis mission.",
	types.TaskSummarization: "Quantum computing is a type of computation whose operations can exploit the collective " +
		"properties of quantum states, such as superposition, interference, and entanglement. Devices that perform " +
		"quantum computations are known as quantum computers. Though current quantum computers are too small to " +
		"outperform usual (classical) computers for practical applications, they are believed to be capable of " +
		"solving certain computational problems, such as integer factorization (which underlies RSA encryption), " +
		"substantially faster than classical computers.",
}

// Preset returns the sample text for a task, or "" for unknown ids.
func Preset(id types.TaskID) string { return presets[id] }

// SwapPreset returns the text to show after switching from one task to
// another. User-entered text is kept; an empty text or the previous task's
// untouched preset is replaced by the new task's preset.
func SwapPreset(current string, from, to types.TaskID) string {
	if current == "" || current == presets[from] {
		if p, ok := presets[to]; ok {
			return p
		}
	}
	return current
}
