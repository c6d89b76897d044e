package handlers

import "github.com/imamik/remotexec/internal/util/keygen"

// Keygen handles the keygen command.
func Keygen(path, keyType string, bits int) error {
	kp, err := keygen.Generate(keyType, bits)
	if err != nil {
		return err
	}
	if err := kp.Write(path); err != nil {
		return err
	}
	printf("Wrote %s and %s.pub\n", path, path)
	return nil
}
