package models

// NeuralNetwork is an entry of the bundled model list offered for training.
type NeuralNetwork struct {
	Model      string `json:"model"`
	Parameters string `json:"parameters"`
}
