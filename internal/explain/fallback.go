package explain

import "fmt"

// Fallback возвращает шаблонное предупреждение без обращения к LLM
func Fallback(a Anomaly) string {
	reading := formatValue(a.Value) + a.Unit

	switch a.Channel {
	case "temperature":
		return fmt.Sprintf("Warning! Thermal anomaly detected in %s. Temperature spiked to %s, "+
			"the same signature we logged before the Demogorgon emerged. The Upside Down is bleeding through.",
			a.Location, reading)
	case "gas":
		return fmt.Sprintf("Alert! Gas concentration in %s at %s. Atmospheric composition is shifting, "+
			"a known signature of the Upside Down. Seal ventilation and initiate containment.",
			a.Location, reading)
	case "vibration":
		return fmt.Sprintf("Warning! Seismic activity detected in %s: %s. These tremors match the frequency "+
			"of interdimensional tunneling. The Demogorgons may be burrowing beneath us.",
			a.Location, reading)
	case "cpu_usage":
		return fmt.Sprintf("Warning! System overload in %s: %s. Electromagnetic interference from the Gate "+
			"is disrupting our systems. The Mind Flayer may be probing our network.",
			a.Location, reading)
	case "humidity":
		return fmt.Sprintf("Alert! Moisture levels in %s have reached %s. This matches the conditions "+
			"when the Gate first opened. Something from the other side is trying to cross over.",
			a.Location, reading)
	case "pressure":
		return fmt.Sprintf("Critical! Barometric pressure in %s dropping to %s. The same vacuum effect "+
			"preceded the Mind Flayer's arrival. Seal all laboratory exits immediately.",
			a.Location, reading)
	case "co2":
		return fmt.Sprintf("Danger! CO2 levels spiking to %s in %s. The air smells like the Upside Down. "+
			"Recommend hazmat protocols and psychic containment measures.",
			reading, a.Location)
	default:
		return fmt.Sprintf("Warning! Anomalous readings detected in %s. Sensor %s shows %s. "+
			"Possible interdimensional interference. Stay vigilant for signs of the Upside Down.",
			a.Location, a.SourceID, reading)
	}
}
