package som

import (
	"testing"
)

// TestTensorCreation verifies basic tensor operations
func TestTensorCreation(t *testing.T) {
	tensor := NewTensor(3, 4)
	if tensor.Size() != 12 {
		t.Errorf("Expected size 12, got %d", tensor.Size())
	}
	if len(tensor.Shape) != 2 || tensor.Shape[0] != 3 || tensor.Shape[1] != 4 {
		t.Errorf("Expected shape [3, 4], got %v", tensor.Shape)
	}

	tensor2 := NewTensorFromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	if tensor2 == nil {
		t.Fatal("NewTensorFromSlice returned nil for a valid shape")
	}
	if tensor2.Data[0] != 1 || tensor2.Data[5] != 6 {
		t.Errorf("Data not correctly initialized")
	}

	// Mismatched shape should return nil
	if NewTensorFromSlice([]float32{1, 2, 3}, 2, 2) != nil {
		t.Error("Invalid shape should return nil")
	}
}

// TestTensorClone verifies cloning is deep
func TestTensorClone(t *testing.T) {
	original := NewTensorFromSlice([]float32{1, 2, 3, 4}, 4)
	clone := original.Clone()

	original.Data[0] = 100

	if clone.Data[0] != 1 {
		t.Errorf("Clone was modified when original changed")
	}
}

// TestTensorReshape verifies reshaping shares data and validates counts
func TestTensorReshape(t *testing.T) {
	tensor := NewTensorFromSlice([]float32{1, 2, 3, 4, 5, 6}, 6)
	reshaped := tensor.Reshape(2, 3)

	if reshaped == nil {
		t.Fatal("Reshape returned nil")
	}
	if len(reshaped.Shape) != 2 || reshaped.Shape[0] != 2 || reshaped.Shape[1] != 3 {
		t.Errorf("Expected shape [2, 3], got %v", reshaped.Shape)
	}

	reshaped.Data[0] = 42
	if tensor.Data[0] != 42 {
		t.Error("Reshape should share the underlying data")
	}

	if tensor.Reshape(2, 2) != nil {
		t.Error("Invalid reshape should return nil")
	}
}

// TestTensorRows verifies row access on a 2-D tensor
func TestTensorRows(t *testing.T) {
	tensor := NewTensorFromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	row := tensor.Row(1)
	if len(row) != 3 || row[0] != 4 || row[2] != 6 {
		t.Errorf("Row(1) = %v, expected [4 5 6]", row)
	}
	if tensor.Rows() != 2 || tensor.Cols() != 3 {
		t.Errorf("Rows/Cols = %d/%d, expected 2/3", tensor.Rows(), tensor.Cols())
	}
}
