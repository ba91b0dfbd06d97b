// Package tokenclass prepares token-classification (NER-style) training data for transformer models.
//
// Sentences arrive already split into words, with one tag per word. They are encoded into
// fixed-length subword sequences and each word's tag is placed on its first subword, every
// other position receiving the Sentinel label.
//
// Sub-packages:
//
//   - tokenizers: pre-split-words encoding to a fixed length, on top of tokenizer.json,
//     SentencePiece or vocab.txt tokenizers.
//   - tagset: the tag vocabulary (tag name to id).
//   - align: the word-to-subtoken label aligner.
//   - collate: applies the aligner over a batch and materializes tensors.
//   - datasets: CoNLL and parquet readers, encoded parquet writer.
//   - hub: downloads tokenizers and datasets from HuggingFace Hub.
package tokenclass

// Version of the library.
// Manually kept in sync with project releases.
var Version = "v0.0.0-dev"

// Sentinel is the label of positions excluded from the loss: continuation subtokens,
// special tokens and padding.
const Sentinel = -100
