// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "terraseries")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/terraseries.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10485760)

	viper.SetDefault("archive.endpoint", "https://archive.example.org/v1")
	viper.SetDefault("archive.apikey", "")
	viper.SetDefault("archive.timeoutseconds", 120)
	viper.SetDefault("archive.cache.enabled", true)
	viper.SetDefault("archive.cache.ttlminutes", 30)

	viper.SetDefault("planner.annualspanyears", 3.0)
	viper.SetDefault("planner.chunkedspanyears", 10.0)
	viper.SetDefault("planner.annualimagecount", 20)
	viper.SetDefault("planner.chunkyears", 2)
	viper.SetDefault("planner.directsamplecap", 50)
	viper.SetDefault("planner.areamediumkm2", 500.0)
	viper.SetDefault("planner.areacoarsekm2", 2000.0)
	viper.SetDefault("planner.finescale", 30.0)
	viper.SetDefault("planner.mediumscale", 100.0)
	viper.SetDefault("planner.coarsescale", 250.0)
	viper.SetDefault("planner.finepixels", int64(1e9))
	viper.SetDefault("planner.mediumpixels", int64(1e8))
	viper.SetDefault("planner.coarsepixels", int64(1e7))

	viper.SetDefault("coverage.opticalthreshold", 99.0)
	viper.SetDefault("coverage.radarthreshold", 85.0)

	viper.SetDefault("masking.basicfactor", 0.5)
	viper.SetDefault("masking.strictfactor", 0.3)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")
}
