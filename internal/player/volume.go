package player

// VolumeControl is the system output volume.
type VolumeControl interface {
	Volume() (level, maxVolume int, err error)
	SetVolume(level int) error
}
