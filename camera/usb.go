package camera

import (
	"fmt"

	"github.com/google/gousb"
)

// u3vSubClass is the USB3 Vision subclass under the miscellaneous class.
const u3vSubClass = 0x05

// Info identifies one attached USB3 Vision device.
type Info struct {
	Vendor  uint16
	Product uint16
	Bus     int
	Address int
}

func (i Info) String() string {
	return fmt.Sprintf("%04x:%04x bus %d addr %d", i.Vendor, i.Product, i.Bus, i.Address)
}

// FindU3V enumerates USB3 Vision devices on the bus without opening
// them.  An empty result with a nil error means no camera is attached.
func FindU3V() ([]Info, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()
	var found []Info
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if isU3V(desc) {
			found = append(found, Info{
				Vendor:  uint16(desc.Vendor),
				Product: uint16(desc.Product),
				Bus:     desc.Bus,
				Address: desc.Address,
			})
		}
		// enumerate only, never open
		return false
	})
	for _, d := range devs {
		d.Close()
	}
	if err != nil {
		return found, fmt.Errorf("camera: usb enumeration: %w", err)
	}
	return found, nil
}

func isU3V(desc *gousb.DeviceDesc) bool {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassMiscellaneous && uint8(alt.SubClass) == u3vSubClass {
					return true
				}
			}
		}
	}
	return false
}
